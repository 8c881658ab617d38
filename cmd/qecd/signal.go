//go:build linux || darwin || freebsd

package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/qec-rv/qecfw/internal/stats"
)

// sigHandler dumps a stats snapshot on SIGUSR1, adapted from the
// teacher's client/signal.go (which dumps kcp.DefaultSnmp the same way).
func sigHandler(core *stats.Core) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)
	signal.Ignore(syscall.SIGPIPE)

	for range ch {
		log.Printf("QEC stats: %+v", core.Snapshot())
	}
}
