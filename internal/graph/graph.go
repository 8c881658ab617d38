// Package graph holds the immutable decoding graph: the node/edge tables
// built once at boot from the embedded detector error model and shared
// read-only by every worker hart thereafter.
package graph

import "fmt"

// DetectorId identifies a stabilizer detector, in [0, NumDetectors). The
// graph's Boundary() value is one past the last real detector.
type DetectorId = uint32

// EdgeId is the stable index of an edge into Graph.Edges.
type EdgeId = uint32

// Edge is an undirected parity-flipping mechanism between two detectors
// (or one detector and the boundary).
type Edge struct {
	U, V   DetectorId
	Parity uint8 // 0 or 1: the logical observable flip this edge causes
}

// Graph is the immutable, CSR-style decoding graph. It is built once at
// boot and never mutated afterward, so it is safe to share by reference
// across every worker goroutine without synchronization.
type Graph struct {
	NumDetectors uint32
	Edges        []Edge

	// AdjOffsets[d]..AdjOffsets[d+1] is the range into AdjEdges holding
	// the EdgeIds incident to detector d. Sized NumDetectors+2 so that
	// Boundary()'s range is also representable.
	AdjOffsets []uint32
	AdjEdges   []uint32
}

// Boundary returns the synthetic node absorbing unmatched parity from open
// edges (core spec §3: BOUNDARY = NumDetectors).
func (g *Graph) Boundary() DetectorId { return g.NumDetectors }

// Neighbors returns the EdgeIds incident to detector d (or Boundary()).
func (g *Graph) Neighbors(d DetectorId) []EdgeId {
	return g.AdjEdges[g.AdjOffsets[d]:g.AdjOffsets[d+1]]
}

// Endpoints returns the two endpoints and parity bit of an edge.
func (g *Graph) Endpoints(e EdgeId) (u, v DetectorId, parity uint8) {
	edge := g.Edges[e]
	return edge.U, edge.V, edge.Parity
}

// Other returns the endpoint of e that is not d. Panics if d is not an
// endpoint of e — a caller bug, since adjacency is only ever walked from
// a detector's own Neighbors() list.
func (g *Graph) Other(e EdgeId, d DetectorId) DetectorId {
	edge := g.Edges[e]
	switch d {
	case edge.U:
		return edge.V
	case edge.V:
		return edge.U
	default:
		panic(fmt.Sprintf("graph: detector %d is not an endpoint of edge %d", d, e))
	}
}

// Build assembles a Graph from an unordered edge list, deriving the CSR
// adjacency tables. It panics with an InvariantViolation-style message on
// malformed input (core spec §4.B: "build data bugs", checked once at
// boot and never again).
//
// Boundary edges are recorded only in their non-boundary endpoint's
// adjacency row (core spec §8 property 5: "adjacency from boundary is
// not required"), so the CSR table terminates at 2*len(edges) -
// boundaryEdges, matching §4.B's build-time invariant exactly.
func Build(numDetectors uint32, edges []Edge) *Graph {
	boundary := numDetectors
	g := &Graph{
		NumDetectors: numDetectors,
		Edges:        edges,
	}

	var boundaryEdges uint32
	degree := make([]uint32, numDetectors+1) // index boundary included, row stays empty
	for i, e := range edges {
		if e.U == e.V {
			panic(fmt.Sprintf("graph: edge %d has identical endpoints %d", i, e.U))
		}
		if e.U > boundary || e.V > boundary {
			panic(fmt.Sprintf("graph: edge %d endpoint out of range (u=%d v=%d boundary=%d)", i, e.U, e.V, boundary))
		}
		if e.U != boundary {
			degree[e.U]++
		}
		if e.V != boundary {
			degree[e.V]++
		}
		if e.U == boundary || e.V == boundary {
			boundaryEdges++
		}
	}

	offsets := make([]uint32, numDetectors+2)
	var sum uint32
	for d := uint32(0); d <= boundary; d++ {
		offsets[d] = sum
		sum += degree[d]
	}
	offsets[boundary+1] = sum

	adjEdges := make([]uint32, sum)
	cursor := make([]uint32, numDetectors+1)
	copy(cursor, offsets[:numDetectors+1])
	for i, e := range edges {
		id := uint32(i)
		if e.U != boundary {
			adjEdges[cursor[e.U]] = id
			cursor[e.U]++
		}
		if e.V != boundary {
			adjEdges[cursor[e.V]] = id
			cursor[e.V]++
		}
	}

	g.AdjOffsets = offsets
	g.AdjEdges = adjEdges

	expectedTotal := 2*uint32(len(edges)) - boundaryEdges
	if sum != expectedTotal {
		panic(fmt.Sprintf("graph: CSR offsets terminate at %d, want %d", sum, expectedTotal))
	}

	return g
}
