// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Command qecd is the host simulation of the real-time QEC decoding
// firmware core: one producer hart feeding a fixed-capacity SPMC ring,
// N worker harts draining it and running the Union-Find decoder,
// against a decoding graph and canned shot archive loaded from the
// firmware image's embedded artifacts.
package main

import (
	"log"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/qec-rv/qecfw/internal/arena"
	"github.com/qec-rv/qecfw/internal/config"
	"github.com/qec-rv/qecfw/internal/dem"
	"github.com/qec-rv/qecfw/internal/graph"
	"github.com/qec-rv/qecfw/internal/hwuf"
	"github.com/qec-rv/qecfw/internal/ring"
	"github.com/qec-rv/qecfw/internal/stats"
	"github.com/qec-rv/qecfw/internal/uf"
)

// VERSION is injected by buildflags.
var VERSION = "SELFBUILD"

func main() {
	if VERSION == "SELFBUILD" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	myApp := cli.NewApp()
	myApp.Name = "qecd"
	myApp.Usage = "real-time QEC decoding firmware core (host simulation)"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{Name: "c", Usage: "JSON config file, overlaid on top of these flags"},
		cli.StringFlag{Name: "dem", Value: "graph.dem", Usage: "path to the decoding graph blob"},
		cli.StringFlag{Name: "shots", Value: "shots.b8", Usage: "path to the canned shot archive"},
		cli.IntFlag{Name: "workers", Value: 4, Usage: "number of worker harts"},
		cli.IntFlag{Name: "ring-size", Value: 512, Usage: "SPMC ring capacity, must be a power of two"},
		cli.IntFlag{Name: "arena-bytes", Value: 1 << 20, Usage: "per-worker bump arena capacity, in bytes"},
		cli.BoolFlag{Name: "hw-offload", Usage: "accelerate root lookups via the hardware find co-simulation"},
		cli.IntFlag{Name: "hw-max-depth", Value: 4096, Usage: "MAX_DEPTH cycles before hw find times out and falls back to software"},
		cli.BoolFlag{Name: "hw-compress", Usage: "write back hw find's resolved root for path compression"},
		cli.IntFlag{Name: "stats-interval", Value: 1, Usage: "console stats reporting interval, in seconds"},
		cli.StringFlag{Name: "csvlog", Usage: "CSV stats log path (strftime-expanded), empty disables"},
		cli.IntFlag{Name: "csvlogperiod", Value: 60, Usage: "CSV stats logging interval, in seconds"},
		cli.BoolFlag{Name: "quiet", Usage: "suppress console stats reporting"},
	}
	myApp.Action = run

	if err := myApp.Run(os.Args); err != nil {
		log.Printf("%+v", err)
		os.Exit(exitCodeFor(err))
	}
}

func run(c *cli.Context) error {
	cfg := config.Default()
	cfg.DemPath = c.String("dem")
	cfg.ShotsPath = c.String("shots")
	cfg.Workers = c.Int("workers")
	cfg.RingSize = c.Int("ring-size")
	cfg.ArenaBytes = c.Int("arena-bytes")
	cfg.HwOffload = c.Bool("hw-offload")
	cfg.HwMaxDepth = c.Int("hw-max-depth")
	cfg.HwCompress = c.Bool("hw-compress")
	cfg.StatsIntervalSeconds = c.Int("stats-interval")
	cfg.CSVLog = c.String("csvlog")
	cfg.CSVLogPeriodSeconds = c.Int("csvlogperiod")
	cfg.Quiet = c.Bool("quiet")

	if path := c.String("c"); path != "" {
		if err := config.ParseJSON(&cfg, path); err != nil {
			return errors.Wrap(config.ErrConfigError, err.Error())
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.Println("version:", VERSION)
	log.Println("dem:", cfg.DemPath, "shots:", cfg.ShotsPath)
	log.Println("workers:", cfg.Workers, "ring-size:", cfg.RingSize, "arena-bytes:", cfg.ArenaBytes)
	log.Println("hw-offload:", cfg.HwOffload, "hw-max-depth:", cfg.HwMaxDepth, "hw-compress:", cfg.HwCompress)

	g, err := loadGraph(cfg.DemPath)
	if err != nil {
		return err
	}
	archive, err := loadShots(cfg.ShotsPath)
	if err != nil {
		return err
	}
	log.Printf("loaded graph: %d detectors, %d edges", g.NumDetectors, len(g.Edges))
	log.Printf("loaded shots: %d shots, %d bytes/shot", archive.NumShots, archive.BytesPerShot)

	r := ring.New(cfg.RingSize)
	core := stats.NewCore(cfg.Workers)

	stop := make(chan struct{})
	if !cfg.Quiet {
		reporter := &stats.ConsoleReporter{
			Core:      core,
			Interval:  time.Duration(cfg.StatsIntervalSeconds) * time.Second,
			Occupancy: func() (int, int) { return r.Occupancy(), r.Cap() },
		}
		go reporter.Run(stop)
	}
	if cfg.CSVLog != "" {
		go stats.CSVLogger(core, cfg.CSVLog, time.Duration(cfg.CSVLogPeriodSeconds)*time.Second)
	}
	go sigHandler(core)

	fatal := make(chan error, cfg.Workers)
	done := make(chan struct{})
	for id := 0; id < cfg.Workers; id++ {
		go runWorker(id, r, g, core, cfg, fatal, done)
	}
	go runProducer(r, archive, cfg.Workers)

	for i := 0; i < cfg.Workers; i++ {
		select {
		case err := <-fatal:
			close(stop)
			return err
		case <-done:
		}
	}
	close(stop)
	log.Println("all workers drained, shutting down cleanly")
	return nil
}

func loadGraph(path string) (g *graph.Graph, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(dem.ErrMalformedDem, err.Error())
	}
	defer f.Close()
	return dem.Load(f)
}

func loadShots(path string) (*dem.Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(dem.ErrMalformedShotArchive, err.Error())
	}
	defer f.Close()
	return dem.LoadShots(f)
}

// newFinderFactory builds the per-shot hardware-offload Finder factory wired
// into uf.Decoder when hw-offload is enabled, or nil for a pure-software
// decode (core spec §4.E).
func newFinderFactory(cfg config.Config) func(parent []uint32) uf.Finder {
	if !cfg.HwOffload {
		return nil
	}
	driver := &hwuf.Driver{MaxDepth: cfg.HwMaxDepth, Compress: cfg.HwCompress}
	return func(parent []uint32) uf.Finder {
		sim := hwuf.NewSim()
		sim.Init(parent)
		return &hwuf.DSUFinder{Driver: driver, Stepper: sim, Parent: parent}
	}
}

// exitCodeFor maps an error returned from run to the exit codes of core
// spec §6: 1 arena-exhausted, 2 malformed DEM / config, 3 malformed shot
// archive, 2 as the fallback for anything else fatal at boot.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, arena.ErrOutOfArena):
		return 1
	case errors.Is(err, dem.ErrMalformedShotArchive):
		return 3
	case errors.Is(err, dem.ErrMalformedDem), errors.Is(err, config.ErrConfigError):
		return 2
	default:
		return 2
	}
}
