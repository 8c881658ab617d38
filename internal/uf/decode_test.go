package uf

import (
	"testing"
	"time"

	"github.com/qec-rv/qecfw/internal/arena"
	"github.com/qec-rv/qecfw/internal/graph"
	"github.com/qec-rv/qecfw/internal/ring"
)

func emptyPacket(numWords int) *ring.SyndromePacket {
	return &ring.SyndromePacket{Bits: make([]uint64, numWords)}
}

func wordsFor(n uint32) int {
	return int((n + 63) / 64)
}

// TestTrivialGraph is the core spec's property 7, both clauses: a single
// detector wired only to BOUNDARY. Nothing fired decodes to an empty
// correction; firing the one detector decodes to a correction containing
// exactly its boundary edge.
func TestTrivialGraph(t *testing.T) {
	edges := []graph.Edge{
		{U: 0, V: 1, Parity: 1}, // edge 0, 1 == Boundary()
	}

	t.Run("nothing fired", func(t *testing.T) {
		g := graph.Build(1, edges)
		a := arena.New(4096)
		pkt := emptyPacket(wordsFor(g.NumDetectors))
		out := make([]graph.EdgeId, 4)

		n, err := Decode(pkt, g, a, out)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if n != 0 {
			t.Fatalf("n = %d, want 0", n)
		}
	})

	t.Run("detector 0 fired", func(t *testing.T) {
		g := graph.Build(1, edges)
		a := arena.New(4096)
		pkt := emptyPacket(wordsFor(g.NumDetectors))
		pkt.Set(0)
		out := make([]graph.EdgeId, 4)

		n, err := Decode(pkt, g, a, out)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if n != 1 || out[0] != 0 {
			t.Fatalf("correction = %v, want {edge_0}", out[:n])
		}
	})
}

// TestZeroDetectors is property 9: a graph with no detectors at all
// decodes the (necessarily empty) syndrome cleanly.
func TestZeroDetectors(t *testing.T) {
	g := graph.Build(0, nil)
	a := arena.New(4096)
	pkt := &ring.SyndromePacket{Bits: nil}
	out := make([]graph.EdgeId, 1)

	n, err := Decode(pkt, g, a, out)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if n != 0 {
		t.Fatalf("n = %d, want 0", n)
	}
}

// TestAllDetectorsSetTerminates is property 8: firing every detector in a
// cyclic graph (so growth cannot dead-end without eventually resolving or
// exhausting BOUNDARY edges) still terminates and returns a valid count.
func TestAllDetectorsSetTerminates(t *testing.T) {
	const n = 64
	edges := make([]graph.Edge, 0, n+1)
	for i := uint32(0); i < n; i++ {
		edges = append(edges, graph.Edge{U: i, V: (i + 1) % n, Parity: uint8(i % 2)})
	}
	edges = append(edges, graph.Edge{U: 0, V: n, Parity: 0}) // one boundary edge, n == Boundary()
	g := graph.Build(n, edges)

	a := arena.New(1 << 16)
	pkt := emptyPacket(wordsFor(g.NumDetectors))
	for d := uint32(0); d < n; d++ {
		pkt.Set(d)
	}
	out := make([]graph.EdgeId, n)

	done := make(chan struct{})
	var count int
	var err error
	go func() {
		count, err = Decode(pkt, g, a, out)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Decode did not terminate firing every detector")
	}
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if count < 0 || count > len(out) {
		t.Fatalf("count = %d out of range", count)
	}
}

// TestFourDetectorEndToEnd is the core spec's property 11 scenario
// verbatim: a 4-detector chain 0-1-2-3 with a boundary edge off detector
// 3, syndrome {0, 3}. The two fired detectors are matched to each other
// through the chain rather than each separately to BOUNDARY, so the
// correction is exactly the three chain edges and their parity XORs to
// zero.
func TestFourDetectorEndToEnd(t *testing.T) {
	edges := []graph.Edge{
		{U: 0, V: 1, Parity: 1}, // edge 0
		{U: 1, V: 2, Parity: 0}, // edge 1
		{U: 2, V: 3, Parity: 1}, // edge 2
		{U: 3, V: 4, Parity: 1}, // edge 3, 4 == Boundary()
	}
	g := graph.Build(4, edges)
	a := arena.New(4096)

	pkt := emptyPacket(wordsFor(g.NumDetectors))
	pkt.Set(0)
	pkt.Set(3)
	out := make([]graph.EdgeId, 4)

	n, err := Decode(pkt, g, a, out)
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
