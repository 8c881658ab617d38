// Package dem loads the build-time error-model artifacts embedded in the
// firmware image: the decoding graph (graph.dem) and the canned shot
// archive used by the host simulator (shots.b8). Both are stored
// snappy-compressed to save flash, and shots.b8 additionally carries a
// Reed-Solomon parity trailer so a single bit-flip in flash is repaired
// at load time instead of corrupting a shot (core spec §6, §7;
// ErrMalformedDem / ErrMalformedShotArchive).
package dem

import (
	"encoding/binary"
	"io"

	"github.com/golang/snappy"
	"github.com/pkg/errors"

	"github.com/qec-rv/qecfw/internal/graph"
)

// demMagic is "QECD" read little-endian, core spec §6.
const demMagic uint32 = 0x51454344
const demVersion uint32 = 1

// ErrMalformedDem is the core spec's MalformedDem: a graph.dem blob whose
// header, magic, version, or edge table doesn't parse.
var ErrMalformedDem = errors.New("dem: malformed graph.dem")

type demHeader struct {
	Magic        uint32
	Version      uint32
	NumDetectors uint32
	NumEdges     uint32
}

type demEdge struct {
	U, V   uint32
	Parity uint8
	_      [3]byte
}

// Load parses a graph.dem blob from r (after unwrapping its snappy
// envelope) into a *graph.Graph, per the exact byte layout of core spec
// §6: a fixed little-endian header followed by NumEdges fixed-size edge
// records.
func Load(r io.Reader) (*graph.Graph, error) {
	sr := snappy.NewReader(r)

	var hdr demHeader
	if err := binary.Read(sr, binary.LittleEndian, &hdr); err != nil {
		return nil, errors.Wrap(ErrMalformedDem, err.Error())
	}
	if hdr.Magic != demMagic {
		return nil, errors.Wrapf(ErrMalformedDem, "bad magic %#x", hdr.Magic)
	}
	if hdr.Version != demVersion {
		return nil, errors.Wrapf(ErrMalformedDem, "unsupported version %d", hdr.Version)
	}

	edges := make([]graph.Edge, hdr.NumEdges)
	for i := range edges {
		var e demEdge
		if err := binary.Read(sr, binary.LittleEndian, &e); err != nil {
			return nil, errors.Wrapf(ErrMalformedDem, "edge %d: %v", i, err)
		}
		edges[i] = graph.Edge{U: e.U, V: e.V, Parity: e.Parity}
	}

	g, err := buildChecked(hdr.NumDetectors, edges)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// buildChecked calls graph.Build, converting its InvariantViolation panic
// (a malformed build-time artifact, not a programming bug when the input
// came from an on-disk blob) into ErrMalformedDem.
func buildChecked(numDetectors uint32, edges []graph.Edge) (g *graph.Graph, err error) {
	defer func() {
		if r := recover(); r != nil {
			g = nil
			err = errors.Wrapf(ErrMalformedDem, "%v", r)
		}
	}()
	g = graph.Build(numDetectors, edges)
	return g, nil
}
