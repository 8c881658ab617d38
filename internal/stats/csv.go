package stats

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// CSVLogger periodically appends one row of Core.Snapshot() to a CSV
// file, adapted from the teacher's SnmpLogger (std/snmp.go): same
// split-path-and-strftime-the-filename trick, same append-with-header-
// on-first-write behavior, but driven by Core instead of kcp.DefaultSnmp.
func CSVLogger(core *Core, path string, interval time.Duration) {
	if path == "" || interval == 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		logdir, logfile := filepath.Split(path)
		f, err := os.OpenFile(logdir+time.Now().Format(logfile), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Println(err)
			return
		}

		w := csv.NewWriter(f)
		if stat, err := f.Stat(); err == nil && stat.Size() == 0 {
			if err := w.Write([]string{"unix", "shots_done", "cycles_sum", "cycles_min", "cycles_max", "malformed"}); err != nil {
				log.Println(err)
			}
		}

		agg := core.Snapshot()
		row := []string{
			fmt.Sprint(time.Now().Unix()),
			fmt.Sprint(agg.ShotsDone),
			fmt.Sprint(agg.CyclesSum),
			fmt.Sprint(minOr0(agg)),
			fmt.Sprint(agg.CyclesMax),
			fmt.Sprint(agg.Malformed),
		}
		if err := w.Write(row); err != nil {
			log.Println(err)
		}
		w.Flush()
		f.Close()
	}
}
