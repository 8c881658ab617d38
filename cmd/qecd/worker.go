package main

import (
	"fmt"
	"log"
	"time"

	"github.com/qec-rv/qecfw/internal/arena"
	"github.com/qec-rv/qecfw/internal/config"
	"github.com/qec-rv/qecfw/internal/graph"
	"github.com/qec-rv/qecfw/internal/ring"
	"github.com/qec-rv/qecfw/internal/stats"
	"github.com/qec-rv/qecfw/internal/uf"
)

// runWorker drains r, decoding every shot against g and recording its
// outcome in core, until it pops the shutdown sentinel (core spec §4.D,
// §5: "N-1 worker harts"). A caught InvariantViolation panic is reported
// on fatal rather than crashing the whole process silently, since it is
// the one error kind core spec §7 treats as always fatal.
func runWorker(id int, r *ring.Ring, g *graph.Graph, core *stats.Core, cfg config.Config, fatal chan<- error, done chan<- struct{}) {
	defer func() {
		if rec := recover(); rec != nil {
			fatal <- fmt.Errorf("worker %d: invariant violation: %v", id, rec)
			return
		}
		done <- struct{}{}
	}()

	a := arena.New(cfg.ArenaBytes)
	dec := uf.Decoder{NewFinder: newFinderFactory(cfg)}
	out := make([]graph.EdgeId, g.NumDetectors)

	var pkt ring.SyndromePacket
	for {
		if err := r.Pop(&pkt); err != nil {
			continue // ring.ErrEmpty: spin, the producer may still have more in flight
		}
		if pkt.ShotID == ring.SentinelShotID {
			return
		}

		start := time.Now()
		n, err := dec.Decode(&pkt, g, a, out)
		cycles := uint64(time.Since(start).Nanoseconds())

		if err == uf.ErrMalformedSyndrome {
			core.Record(id, cycles, true)
			continue
		}
		if err != nil {
			// OutOfArena or a correction-buffer overrun: fatal to this
			// shot only (core spec §7). The arena already reset itself
			// via Decode's deferred Release, so the worker continues.
			log.Printf("worker %d: shot %d: %v", id, pkt.ShotID, err)
			core.Record(id, cycles, true)
			continue
		}
		_ = n
		core.Record(id, cycles, false)
	}
}

