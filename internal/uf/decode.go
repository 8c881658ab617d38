package uf

import (
	"math/bits"

	"github.com/pkg/errors"

	"github.com/qec-rv/qecfw/internal/arena"
	"github.com/qec-rv/qecfw/internal/graph"
	"github.com/qec-rv/qecfw/internal/ring"
)

// ErrMalformedSyndrome is the core spec's MalformedSyndrome: a packet with
// a bit set at or beyond the graph's NumDetectors. Decode never panics on
// operator-supplied syndrome data — only on build-time graph bugs, which
// are a programming error rather than a runtime condition.
var ErrMalformedSyndrome = errors.New("uf: syndrome sets a bit beyond NumDetectors")

// ErrCorrectionBufferTooSmall is returned when out cannot hold every edge
// the decoder needs to emit. Callers size out from NumDetectors: every
// emitted edge is the tree edge of a distinct detector, so at most
// NumDetectors edges can ever be emitted.
var ErrCorrectionBufferTooSmall = errors.New("uf: correction buffer too small")

// Finder resolves a node to its DSU root without tracking parity — the
// hardware offload contract of core spec §4.E ("hardware tracks no
// parity"). A Decoder with a non-nil NewFinder uses one, bound fresh to
// each shot's DSU.Parent array, for the growth loop's root-equality
// shortcuts (which never need parity), falling back to the DSU's own
// software Find (which does track parity) whenever Finder returns an
// error such as hwuf.ErrTimeout.
type Finder interface {
	Find(x uint32) (uint32, error)
}

// Decoder runs Decode, optionally accelerated by a hardware Finder.
// The zero value decodes entirely in software.
type Decoder struct {
	// NewFinder, if set, is called once per Decode with that shot's
	// DSU.Parent array and must return a Finder reading from it — e.g.
	// hwuf.DSUFinder wrapping a Driver and a Stepper (Sim or real MMIO).
	// A fresh binding per call is required since each Decode carves a
	// new DSU (and thus a new Parent backing array) from the arena.
	NewFinder func(parent []uint32) Finder
}

// resolveRoot resolves x's root, preferring finder when non-nil and
// falling back to d's own software path-halving Find on any Finder
// error. Parity-critical call sites (Union, and any read of
// ParityToRoot) never go through this path — they call d.Find directly.
func resolveRoot(d *DSU, finder Finder, x uint32) uint32 {
	if finder != nil {
		if root, err := finder.Find(x); err == nil {
			return root
		}
	}
	return d.Find(x)
}

// Decode runs the cluster-growth Union-Find decoder of core spec §4.C
// in software only, equivalent to (&Decoder{}).Decode.
func Decode(pkt *ring.SyndromePacket, g *graph.Graph, a *arena.Arena, out []graph.EdgeId) (int, error) {
	var dec Decoder
	return dec.Decode(pkt, g, a, out)
}

// Decode runs the cluster-growth Union-Find decoder of core spec §4.C
// against pkt: it allocates a per-shot DSU from a's current scope, grows
// clusters outward from every fired detector one hop at a time until
// each cluster's total parity is even (or it has been absorbed into
// BOUNDARY), pairs any detector clusters that are still odd once growth
// stalls to BOUNDARY using each survivor's own real boundary edge
// (SPEC_FULL.md Supplemented Feature 3), and finally walks the resulting
// spanning forest to extract the correction edge set into out. All
// scratch state lives in a's scope
// and is released before Decode returns, leaving out as the only
// allocation that escapes the call.
func (dec *Decoder) Decode(pkt *ring.SyndromePacket, g *graph.Graph, a *arena.Arena, out []graph.EdgeId) (int, error) {
	scope := a.Scope()
	defer a.Release(scope)

	n := g.NumDetectors
	if err := validateSyndrome(pkt, n); err != nil {
		return 0, err
	}

	d, err := NewDSU(a, n)
	if err != nil {
		return 0, err
	}

	var finder Finder
	if dec.NewFinder != nil {
		finder = dec.NewFinder(d.Parent)
	}

	treeParentBytes, err := a.AllocAligned(int(n+1)*4, 4)
	if err != nil {
		return 0, err
	}
	treeEdgeBytes, err := a.AllocAligned(int(n+1)*4, 4)
	if err != nil {
		return 0, err
	}
	treeHasEdgeBytes, err := a.AllocAligned(int(n+1), 1)
	if err != nil {
		return 0, err
	}
	visitedBytes, err := a.AllocAligned(int(n+1), 1)
	if err != nil {
		return 0, err
	}

	treeParent := byteSliceAsUint32(treeParentBytes)
	treeEdge := byteSliceAsUint32(treeEdgeBytes)
	treeHasEdge := byteSliceAsBool(treeHasEdgeBytes)
	visited := byteSliceAsBool(visitedBytes)
	for i := range treeParent {
		treeParent[i] = uint32(i)
		treeHasEdge[i] = false
		visited[i] = false
	}

	firedBytes, err := a.AllocAligned(int(n)*4, 4)
	if err != nil {
		return 0, err
	}
	queueBytes, err := a.AllocAligned(int(n)*4, 4)
	if err != nil {
		return 0, err
	}
	fired := byteSliceAsUint32(firedBytes)[:0]
	queue := byteSliceAsUint32(queueBytes)[:0]

	nwords := int((n + 63) / 64)
	for w := 0; w < nwords; w++ {
		word := pkt.Bits[w]
		for word != 0 {
			bit := bits.TrailingZeros64(word)
			word &= word - 1
			det := uint32(w*64 + bit)
			d.ClusterOdd[det] = true
			fired = append(fired, det)
			queue = append(queue, det)
		}
	}

	// Cluster growth: flood-fill one hop at a time from every fired
	// detector, skipping BOUNDARY edges entirely (a cluster only reaches
	// BOUNDARY through the residual pass below, never as an ordinary
	// growth step — growing straight to BOUNDARY first would resolve a
	// cluster prematurely instead of pairing it with a nearby defect).
	// Each successful union is recorded as treeParent[other] = node,
	// treeEdge[other] = eid — the literal graph endpoints, not DSU roots,
	// since DSU's own Parent keeps getting rewritten by path halving and
	// a root-keyed record would collapse multi-hop chains down to a
	// single (wrong) edge. Once discovered, a node's tree parent is
	// never replaced, so later redundant unions through it are simply
	// non-tree edges (normal for a graph that isn't itself a tree).
	for len(queue) > 0 {
		node := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if visited[node] {
			continue
		}
		visited[node] = true

		root := resolveRoot(d, finder, node)
		if root == d.Boundary() || !d.ClusterOdd[root] {
			continue
		}

		for _, eid := range g.Neighbors(node) {
			other := g.Other(eid, node)
			if other == d.Boundary() {
				continue
			}
			_, _, parity := g.Endpoints(eid)

			if resolveRoot(d, finder, node) == resolveRoot(d, finder, other) {
				continue
			}
			if !d.Union(node, other, parity) {
				continue
			}
			if treeParent[other] == other {
				treeParent[other] = node
				treeEdge[other] = eid
				treeHasEdge[other] = true
			}

			newRoot := d.Find(node)
			if d.ClusterOdd[newRoot] && !visited[other] {
				queue = append(queue, other)
			}
			if !d.ClusterOdd[newRoot] {
				break
			}
		}
	}

	// Residual odd clusters: growth stalled (no more non-BOUNDARY
	// neighbors to absorb) while still odd. Each survivor is paired to
	// BOUNDARY using the real incident boundary edge carried by the
	// fired detector itself (core spec §8 property 7: the trivial graph
	// (0, BOUNDARY, p=1) must decode syndrome {0} to {edge_0}, not an
	// empty correction) — never a synthetic edge. A fired detector only
	// supplies this pairing when it is still its own tree terminal (no
	// earlier union already gave it a parent) and its own adjacency
	// has a direct BOUNDARY edge; otherwise the DSU cluster still
	// resolves via Union but nothing is added to the correction for
	// that hop (matching the prior behavior for every case this does
	// not improve on).
	pairedRootBytes, err := a.AllocAligned(int(n+1), 1)
	if err != nil {
		return 0, err
	}
	pairedRoot := byteSliceAsBool(pairedRootBytes)
	clear(pairedRoot)
	for _, det := range fired {
		root := resolveRoot(d, finder, det)
		if root == d.Boundary() || !d.ClusterOdd[root] || pairedRoot[root] {
			continue
		}
		if treeParent[det] != det {
			continue
		}
		eid, parity, ok := boundaryNeighbor(g, det)
		if !ok {
			continue
		}
		if !d.Union(det, d.Boundary(), parity) {
			continue
		}
		pairedRoot[root] = true
		treeParent[det] = d.Boundary()
		treeEdge[det] = eid
		treeHasEdge[det] = true
	}

	// Extract the correction: walk each fired detector up through the
	// static tree-parent chain, deduping edges so a shared upper branch
	// of the forest is only emitted once.
	emittedBytes, err := a.AllocAligned(len(g.Edges), 1)
	if err != nil {
		return 0, err
	}
	emitted := byteSliceAsBool(emittedBytes)
	clear(emitted)
	count := 0
	for _, det := range fired {
		cur := det
		for treeParent[cur] != cur {
			if treeHasEdge[cur] {
				eid := treeEdge[cur]
				if !emitted[eid] {
					emitted[eid] = true
					if count >= len(out) {
						return count, ErrCorrectionBufferTooSmall
					}
					out[count] = eid
					count++
				}
			}
			cur = treeParent[cur]
		}
	}

	return count, nil
}

// boundaryNeighbor returns the EdgeId and parity of det's own incident
// edge to BOUNDARY, if it has one.
func boundaryNeighbor(g *graph.Graph, det graph.DetectorId) (eid graph.EdgeId, parity uint8, ok bool) {
	for _, e := range g.Neighbors(det) {
		if g.Other(e, det) == g.Boundary() {
			_, _, p := g.Endpoints(e)
			return e, p, true
		}
	}
	return 0, 0, false
}

// mustAlloc is AllocAligned that panics on failure instead of returning
// an error. The returned bytes are not zeroed.
func mustAlloc(a *arena.Arena, size, align int) []byte {
	b, err := a.AllocAligned(size, align)
	if err != nil {
		panic(err)
	}
	return b
}

// validateSyndrome checks pkt against MalformedSyndrome (core spec §7):
// the bit vector must be at least wide enough for n detectors, with every
// bit at or beyond n clear (extra words are accepted when they are zero).
// Every failure returns the bare ErrMalformedSyndrome sentinel.
func validateSyndrome(pkt *ring.SyndromePacket, n uint32) error {
	nwords := int((n + 63) / 64)
	if len(pkt.Bits) < nwords {
		return ErrMalformedSyndrome
	}
	for w := nwords; w < len(pkt.Bits); w++ {
		if pkt.Bits[w] != 0 {
			return ErrMalformedSyndrome
		}
	}
	if tail := n % 64; tail != 0 && nwords > 0 {
		mask := ^uint64(0) << tail
		if pkt.Bits[nwords-1]&mask != 0 {
			return ErrMalformedSyndrome
		}
	}
	return nil
}
