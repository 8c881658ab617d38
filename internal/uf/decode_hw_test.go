package uf

import (
	"testing"

	"github.com/qec-rv/qecfw/internal/arena"
	"github.com/qec-rv/qecfw/internal/graph"
	"github.com/qec-rv/qecfw/internal/hwuf"
)

// TestDecodeWithHardwareFinder is the core spec's property 6 exercised
// end-to-end: Decode wired to a hardware Finder (the cycle-accurate Sim
// standing in for the Verilator co-simulation) passes the same checks as
// the pure-software TestFourDetectorEndToEnd on the same scenario: a
// correction of at most 3 edges whose parity XOR is zero.
func TestDecodeWithHardwareFinder(t *testing.T) {
	edges := []graph.Edge{
		{U: 0, V: 1, Parity: 1},
		{U: 1, V: 2, Parity: 0},
		{U: 2, V: 3, Parity: 1},
		{U: 3, V: 4, Parity: 1}, // 4 == Boundary()
	}
	g := graph.Build(4, edges)
	a := arena.New(4096)

	pkt := emptyPacket(wordsFor(g.NumDetectors))
	pkt.Set(0)
	pkt.Set(3)
	out := make([]graph.EdgeId, 4)

	dec := Decoder{
		NewFinder: func(parent []uint32) Finder {
			sim := hwuf.NewSim()
			sim.Init(parent)
			return &hwuf.DSUFinder{
				Driver:  &hwuf.Driver{MaxDepth: 64},
				Stepper: sim,
				Parent:  parent,
			}
		},
	}

	n, err := dec.Decode(pkt, g, a, out)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if n > 3 {
		t.Fatalf("correction size = %d, want <= 3", n)
	}
	var parity uint8
	for _, eid := range out[:n] {
		_, _, p := g.Endpoints(eid)
		parity ^= p
	}
	if parity != 0 {
		t.Fatalf("correction parity XOR = %d, want 0 (edges: %v)", parity, out[:n])
	}
}

// TestDecodeHardwareFinderFallsBackOnTimeout checks that a Finder which
// always times out still yields a correct decode purely via the
// software fallback in resolveRoot.
func TestDecodeHardwareFinderFallsBackOnTimeout(t *testing.T) {
	edges := []graph.Edge{
		{U: 0, V: 1, Parity: 1},
		{U: 1, V: 2, Parity: 0},
		{U: 2, V: 3, Parity: 1},
		{U: 3, V: 4, Parity: 1},
	}
	g := graph.Build(4, edges)
	a := arena.New(4096)

	pkt := emptyPacket(wordsFor(g.NumDetectors))
	pkt.Set(0)
	pkt.Set(3)
	out := make([]graph.EdgeId, 4)

	dec := Decoder{
		NewFinder: func(parent []uint32) Finder {
			sim := hwuf.NewSim()
			sim.Init(parent)
			return &hwuf.DSUFinder{
				Driver:  &hwuf.Driver{MaxDepth: 0}, // always times out
				Stepper: sim,
				Parent:  parent,
			}
		},
	}

	n, err := dec.Decode(pkt, g, a, out)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var parity uint8
	for _, eid := range out[:n] {
		_, _, p := g.Endpoints(eid)
		parity ^= p
	}
	if parity != 0 {
		t.Fatalf("correction parity XOR = %d, want 0", parity)
	}
}
