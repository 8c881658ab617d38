package stats

import (
	"math"
	"sync"
	"testing"
)

func TestNewCoreInitialMin(t *testing.T) {
	c := NewCore(2)
	if c.Workers[0].CyclesMin.Load() != math.MaxUint64 {
		t.Fatalf("CyclesMin = %d, want MaxUint64", c.Workers[0].CyclesMin.Load())
	}
	agg := c.Snapshot()
	if agg.CyclesMin != 0 {
		t.Fatalf("empty Snapshot CyclesMin = %d, want 0", agg.CyclesMin)
	}
}

func TestRecordMinMax(t *testing.T) {
	c := NewCore(1)
	c.Record(0, 100, false)
	c.Record(0, 50, false)
	c.Record(0, 200, true)

	agg := c.Snapshot()
	if agg.ShotsDone != 3 {
		t.Fatalf("ShotsDone = %d, want 3", agg.ShotsDone)
	}
	if agg.CyclesMin != 50 {
		t.Fatalf("CyclesMin = %d, want 50", agg.CyclesMin)
	}
	if agg.CyclesMax != 200 {
		t.Fatalf("CyclesMax = %d, want 200", agg.CyclesMax)
	}
	if agg.Malformed != 1 {
		t.Fatalf("Malformed = %d, want 1", agg.Malformed)
	}
	if agg.AvgCycles() != (100+50+200)/3.0 {
		t.Fatalf("AvgCycles = %v, want %v", agg.AvgCycles(), (100+50+200)/3.0)
	}
}

// TestMultiWorkerAccounting is the core spec's property 12: 3 workers
// consume 10,000 shots between them, and the aggregate view accounts for
// every one exactly once with a coherent min <= avg <= max.
func TestMultiWorkerAccounting(t *testing.T) {
	const numWorkers = 3
	const numShots = 10000
	c := NewCore(numWorkers)

	processed := make([]int32, numShots)
	var wg sync.WaitGroup
	shotsPerWorker := numShots / numWorkers
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			start := worker * shotsPerWorker
			end := start + shotsPerWorker
			if worker == numWorkers-1 {
				end = numShots
			}
			for i := start; i < end; i++ {
				processed[i]++
				c.Record(worker, uint64(100+i%50), false)
			}
		}(w)
	}
	wg.Wait()

	for i, n := range processed {
		if n != 1 {
			t.Fatalf("shot %d processed %d times, want exactly 1", i, n)
		}
	}

	agg := c.Snapshot()
	if agg.ShotsDone != numShots {
		t.Fatalf("sum(shots_done) = %d, want %d", agg.ShotsDone, numShots)
	}
	if !(agg.CyclesMin <= uint64(agg.AvgCycles()) && uint64(agg.AvgCycles()) <= agg.CyclesMax) {
		t.Fatalf("min/avg/max not ordered: %d/%v/%d", agg.CyclesMin, agg.AvgCycles(), agg.CyclesMax)
	}
}
