package uf

import (
	"math/rand"
	"testing"

	"github.com/qec-rv/qecfw/internal/arena"
)

func newTestDSU(t *testing.T, n uint32) *DSU {
	t.Helper()
	a := arena.New(1 << 16)
	d, err := NewDSU(a, n)
	if err != nil {
		t.Fatalf("NewDSU: %v", err)
	}
	return d
}

// TestFindIdempotent is the core spec's property 1: calling Find twice in
// a row on the same node returns the same root both times, with or
// without intervening unions elsewhere in the forest.
func TestFindIdempotent(t *testing.T) {
	const n = 64
	d := newTestDSU(t, n)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		a := uint32(rng.Intn(n + 1))
		b := uint32(rng.Intn(n + 1))
		if a == b {
			continue
		}
		d.Union(a, b, uint8(rng.Intn(2)))
	}

	for x := uint32(0); x <= n; x++ {
		r1 := d.Find(x)
		r2 := d.Find(x)
		if r1 != r2 {
			t.Fatalf("Find(%d) not idempotent: %d then %d", x, r1, r2)
		}
	}
}

// parityToRootBruteForce recomputes x's parity to its root by walking the
// union log directly (never touching the DSU's own compressed state),
// giving an oracle independent of Find's path-halving bookkeeping.
func parityToRootBruteForce(parent map[uint32]uint32, edgeParity map[uint32]uint8, x uint32) uint8 {
	var acc uint8
	for {
		p, ok := parent[x]
		if !ok {
			return acc
		}
		acc ^= edgeParity[x]
		x = p
	}
}

// TestParityCoherence is the core spec's property 2: after any sequence
// of unions, ParityToRoot(x) equals the XOR of edge parities on the
// spanning-tree path from x to its root, cross-checked against an
// independent oracle that never relies on Find's own compression.
func TestParityCoherence(t *testing.T) {
	const n = 32
	d := newTestDSU(t, n)
	rng := rand.New(rand.NewSource(99))

	// logParent/logEdgeParity record, for whichever side of each
	// successful union lost (became the child), its original tree
	// parent and the edge parity used — independent of DSU.Parent,
	// which keeps getting rewritten by path halving.
	logParent := make(map[uint32]uint32)
	logEdgeParity := make(map[uint32]uint8)

	for i := 0; i < 500; i++ {
		a := uint32(rng.Intn(n + 1))
		b := uint32(rng.Intn(n + 1))
		if a == b {
			continue
		}
		ep := uint8(rng.Intn(2))
		ra, rb := d.Find(a), d.Find(b)
		if ra == rb {
			continue
		}
		pa := d.ParityToRoot(a)
		pb := d.ParityToRoot(b)
		if !d.Union(a, b, ep) {
			continue
		}
		newRoot := d.Find(a)
		combined := pa ^ pb ^ ep
		if ra != newRoot {
			logParent[ra] = newRoot
			logEdgeParity[ra] = combined
		} else {
			logParent[rb] = newRoot
			logEdgeParity[rb] = combined
		}
	}

	for x := uint32(0); x <= n; x++ {
		want := parityToRootBruteForce(logParent, logEdgeParity, x)
		d.Find(x) // force full resolution against the current root
		got := d.ParityToRoot(x)
		if got != want {
			t.Fatalf("ParityToRoot(%d) = %d, want %d", x, got, want)
		}
	}
}
