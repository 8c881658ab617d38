package stats

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
)

// ConsoleReporter periodically prints the operator-facing line of core
// spec §6 ("T=<secs>s | Rate: <rate>/s | Lat: <min>/<avg>/<max> | Q:
// <depth>") and colorizes a warning line when the malformed counter grows
// or the ring is over half full, mirroring the teacher's color.Red
// warnings for out-of-range QPP settings.
type ConsoleReporter struct {
	Core      *Core
	Interval  time.Duration
	Occupancy func() (depth, cap int)
	Out       io.Writer

	start       time.Time
	lastShots   uint64
	lastMalform uint64
}

// Run blocks, printing one line every Interval, until stop is closed.
func (r *ConsoleReporter) Run(stop <-chan struct{}) {
	if r.Out == nil {
		r.Out = os.Stdout
	}
	r.start = time.Now()

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.tick()
		}
	}
}

func (r *ConsoleReporter) tick() {
	agg := r.Core.Snapshot()
	secs := time.Since(r.start).Seconds()

	deltaShots := agg.ShotsDone - r.lastShots
	rate := float64(deltaShots) / r.Interval.Seconds()
	r.lastShots = agg.ShotsDone

	depth, cap := 0, 0
	if r.Occupancy != nil {
		depth, cap = r.Occupancy()
	}

	fmt.Fprintf(r.Out, "T=%.0fs | Rate: %.0f/s | Lat: %d/%.1f/%d | Q: %d\n",
		secs, rate, minOr0(agg), agg.AvgCycles(), agg.CyclesMax, depth)

	if agg.Malformed > r.lastMalform {
		color.Red("WARNING: %d malformed shot(s) rejected since last tick", agg.Malformed-r.lastMalform)
	}
	r.lastMalform = agg.Malformed
	if cap > 0 && depth > cap/2 {
		color.Red("WARNING: ring occupancy %d exceeds half of capacity %d", depth, cap)
	}
}

func minOr0(a Aggregate) uint64 {
	if a.ShotsDone == 0 {
		return 0
	}
	return a.CyclesMin
}
