// Package uf implements the zero-allocation Union-Find decoder: per-shot
// DSU state carved from a bump arena, path-halving find with parity
// tracking, and the cluster-growth / correction-extraction algorithm of
// core spec §4.C.
package uf

import (
	"unsafe"

	"github.com/qec-rv/qecfw/internal/arena"
)

// DSU is the per-shot scratch state of core spec §3, four arrays carved
// from a single arena scope — no per-node objects, no nested allocation.
type DSU struct {
	Parent     []uint32
	Parity     []uint8
	Rank       []uint8
	ClusterOdd []bool

	boundary uint32
}

// NewDSU allocates the four DSU arrays, sized NumDetectors+1, from a.
// Every slot starts as its own root with zero parity and rank, and
// ClusterOdd cleared — including the boundary, which always starts (and
// stays) even-parity (core spec §4.C step 1).
func NewDSU(a *arena.Arena, numDetectors uint32) (*DSU, error) {
	n := int(numDetectors) + 1

	parentBytes, err := a.AllocAligned(n*4, 4)
	if err != nil {
		return nil, err
	}
	parityBytes, err := a.AllocAligned(n, 1)
	if err != nil {
		return nil, err
	}
	rankBytes, err := a.AllocAligned(n, 1)
	if err != nil {
		return nil, err
	}
	oddBytes, err := a.AllocAligned(n, 1)
	if err != nil {
		return nil, err
	}

	d := &DSU{
		Parent:     byteSliceAsUint32(parentBytes),
		Parity:     parityBytes,
		Rank:       rankBytes,
		ClusterOdd: byteSliceAsBool(oddBytes),
		boundary:   numDetectors,
	}
	for i := range d.Parent {
		d.Parent[i] = uint32(i)
		d.Parity[i] = 0
		d.Rank[i] = 0
		d.ClusterOdd[i] = false
	}
	return d, nil
}

// byteSliceAsUint32 reinterprets an arena-backed, 4-byte-aligned byte
// slice as a []uint32 of the same backing array — no copy, no heap
// allocation, matching the zero-allocation requirement on the decode
// path (core spec §1, §9 "DSU as arena-backed arrays").
func byteSliceAsUint32(b []byte) []uint32 {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&b[0])), len(b)/4)
}

// byteSliceAsBool reinterprets an arena-backed byte slice as a []bool of
// the same length and backing array (bool and byte share size/alignment
// in the Go memory model).
func byteSliceAsBool(b []byte) []bool {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*bool)(unsafe.Pointer(&b[0])), len(b))
}

// Find performs iterative path halving: at each step, parent[x] is
// rewritten to its current grandparent, with parity accumulated *before*
// the pointer is advanced so the running XOR stays correct (core spec
// §4.C "Find (software)"). x stays pinned: each iteration moves parent[x]
// one hop closer to the root, so the loop runs once per hop of x's depth
// and terminates once parent[x] is a root; only x's own Parent and Parity
// entries are rewritten. Unlike plain (non-parity) path
// halving, this always leaves Parity[x] fully resolved against the
// returned root when the call returns, which the Union formula below
// depends on (core spec §8 property 2, parity coherence).
func (d *DSU) Find(x uint32) uint32 {
	for d.Parent[d.Parent[x]] != d.Parent[x] {
		gp := d.Parent[d.Parent[x]]
		d.Parity[x] ^= d.Parity[d.Parent[x]]
		d.Parent[x] = gp
	}
	return d.Parent[x]
}

// ParityToRoot returns the accumulated parity from x to its root as of
// the last Find(x) — callers must Find(x) first (or rely on Union having
// just updated it) to get an up-to-date value; DSU never recomputes it
// lazily to keep this a pure O(1) read.
func (d *DSU) ParityToRoot(x uint32) uint8 { return d.Parity[x] }

// Union merges the clusters containing a and b, recording that edge's
// parity, per union_by_rank in core spec §4.C. Returns false if a and b
// were already in the same cluster (a cycle edge; nothing recorded).
func (d *DSU) Union(a, b uint32, edgeParity uint8) bool {
	ra := d.Find(a)
	rb := d.Find(b)
	if ra == rb {
		return false
	}

	p := d.Parity[a] ^ d.Parity[b] ^ edgeParity

	// BOUNDARY has infinite rank: unions with it always make it the
	// parent, and its ClusterOdd never changes (it absorbs parity).
	switch {
	case ra == d.boundary:
		d.Parent[rb] = ra
		d.Parity[rb] = p
	case rb == d.boundary:
		d.Parent[ra] = rb
		d.Parity[ra] = p
	case d.Rank[ra] < d.Rank[rb]:
		d.Parent[ra] = rb
		d.Parity[ra] = p
		d.ClusterOdd[rb] = d.ClusterOdd[rb] != d.ClusterOdd[ra]
	case d.Rank[ra] > d.Rank[rb]:
		d.Parent[rb] = ra
		d.Parity[rb] = p
		d.ClusterOdd[ra] = d.ClusterOdd[ra] != d.ClusterOdd[rb]
	default:
		d.Parent[rb] = ra
		d.Parity[rb] = p
		d.Rank[ra]++
		d.ClusterOdd[ra] = d.ClusterOdd[ra] != d.ClusterOdd[rb]
	}
	return true
}

// Boundary returns the synthetic node absorbing unmatched parity.
func (d *DSU) Boundary() uint32 { return d.boundary }
