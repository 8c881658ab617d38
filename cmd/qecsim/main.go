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

// Command qecsim is a standalone oracle-test harness for the hardware
// find contract (core spec §4.E): it drives internal/hwuf.Driver+Sim
// against a synthetic parent RAM, walking every node through the
// cycle-accurate state machine and checking the returned root against
// a plain software walk of the same array. It exercises only component
// E in isolation — qecd wires E into the full decode path.
package main

import (
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/qec-rv/qecfw/internal/hwuf"
)

var VERSION = "SELFBUILD"

func main() {
	if VERSION == "SELFBUILD" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	myApp := cli.NewApp()
	myApp.Name = "qecsim"
	myApp.Usage = "cycle-accurate hardware find co-simulation harness"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.IntFlag{Name: "nodes", Value: 256, Usage: "size of the synthetic parent RAM"},
		cli.IntFlag{Name: "chains", Value: 8, Usage: "number of disjoint union chains to build before walking"},
		cli.IntFlag{Name: "max-depth", Value: 4096, Usage: "MAX_DEPTH cycles before hw find times out"},
		cli.BoolFlag{Name: "compress", Usage: "enable hw find write-back path compression"},
		cli.BoolFlag{Name: "verbose", Usage: "print every node's cycle count, not just mismatches"},
	}
	myApp.Action = run

	if err := myApp.Run(os.Args); err != nil {
		log.Printf("%+v", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	numNodes := c.Int("nodes")
	if numNodes <= 0 {
		return errors.New("qecsim: --nodes must be positive")
	}
	parent := syntheticParentRAM(numNodes, c.Int("chains"))

	driver := &hwuf.Driver{MaxDepth: c.Int("max-depth"), Compress: c.Bool("compress")}
	sim := hwuf.NewSim()

	var mismatches, timeouts int
	for node := 0; node < numNodes; node++ {
		// A fresh Sim per node mirrors Decode's per-shot Init: the
		// accelerator's parent RAM reference must always point at the
		// array currently live, never a stale one from a prior walk.
		sim.Init(parent)
		want := softwareFind(parent, uint32(node))

		got, err := driver.HwFind(sim, parent, uint32(node))
		if err != nil {
			timeouts++
			log.Printf("node %d: %v", node, err)
			continue
		}
		if got != want {
			mismatches++
			color.Red("node %d: hw root %d != software root %d", node, got, want)
			continue
		}
		if c.Bool("verbose") {
			fmt.Printf("node %d -> root %d (ok)\n", node, got)
		}
	}

	log.Printf("walked %d nodes: %d mismatches, %d timeouts", numNodes, mismatches, timeouts)
	if mismatches > 0 {
		return errors.Errorf("qecsim: %d root mismatches against the software oracle", mismatches)
	}
	return nil
}

// syntheticParentRAM builds a parent array of n self-rooted nodes, then
// makes n-chains merge attempts, each pointing the root of one random
// node at the root of another when the two differ — the same shape Union
// produces, without pulling in internal/uf (which would make this a
// decode-path test, not an isolated co-simulation harness). An attempt
// that draws two nodes already in one tree merges nothing, so at least
// `chains` trees remain.
func syntheticParentRAM(n, chains int) []uint32 {
	parent := make([]uint32, n)
	for i := range parent {
		parent[i] = uint32(i)
	}
	if chains <= 0 || chains >= n {
		return parent
	}
	for i := 0; i < n-chains; i++ {
		a := rand.Intn(n)
		b := rand.Intn(n)
		rootA := softwareFind(parent, uint32(a))
		rootB := softwareFind(parent, uint32(b))
		if rootA != rootB {
			parent[rootA] = rootB
		}
	}
	return parent
}

// softwareFind is the oracle: a plain, unaccelerated parent-pointer walk
// with no cycle accounting, mirroring DSU.Find's traversal shape but
// deliberately independent of internal/uf so this harness never depends
// on the decoder it is meant to validate hardware against.
func softwareFind(parent []uint32, x uint32) uint32 {
	for parent[x] != x {
		x = parent[x]
	}
	return x
}
