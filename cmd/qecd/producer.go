package main

import (
	"github.com/qec-rv/qecfw/internal/dem"
	"github.com/qec-rv/qecfw/internal/ring"
)

// runProducer is the sole producer hart (core spec §5): it replays every
// shot in archive into r in order, spinning on ErrFull as the only
// allowed backpressure response, then broadcasts one shutdown sentinel
// per worker so each worker's Pop loop sees exactly one and exits.
func runProducer(r *ring.Ring, archive *dem.Archive, numWorkers int) {
	for i := 0; i < int(archive.NumShots); i++ {
		pkt := archive.Packet(i)
		for r.Push(&pkt) == ring.ErrFull {
			// Spin: the only backpressure response allowed on the
			// push path (core spec §5).
		}
	}

	sentinel := ring.SyndromePacket{ShotID: ring.SentinelShotID}
	for i := 0; i < numWorkers; i++ {
		for r.Push(&sentinel) == ring.ErrFull {
		}
	}
}
