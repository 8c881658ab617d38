// Package config loads the daemon's runtime configuration: CLI flags
// first, then an optional JSON file whose fields override them — the
// same two-layer precedence the teacher's client/server binaries use
// (server/config.go's parseJSONConfig, composed with the CLI flags read
// in each binary's Action).
package config

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// ErrConfigError is the core spec's ConfigError: a malformed runtime
// configuration, fatal at boot (core spec §7).
var ErrConfigError = errors.New("config: invalid configuration")

// Config is the daemon's full runtime configuration (core spec §4,
// "SPEC_FULL.md" ambient stack).
type Config struct {
	DemPath   string `json:"dem"`
	ShotsPath string `json:"shots"`

	Workers    int `json:"workers"`
	RingSize   int `json:"ring_size"`
	ArenaBytes int `json:"arena_bytes"`

	HwOffload  bool `json:"hw_offload"`
	HwMaxDepth int  `json:"hw_max_depth"`
	HwCompress bool `json:"hw_compress"`

	StatsIntervalSeconds int    `json:"stats_interval"`
	CSVLog               string `json:"csvlog"`
	CSVLogPeriodSeconds  int    `json:"csvlogperiod"`

	Quiet bool `json:"quiet"`
}

// ParseJSON overlays the JSON file at path onto c, field by field — only
// keys present in the file are touched, exactly like the teacher's
// parseJSONConfig.
func ParseJSON(c *Config, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "config: opening JSON config")
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(c)
}

// Validate checks the fields every other package assumes are already
// sane by the time main wires things up, returning ErrConfigError
// (core spec's ConfigError, fatal at boot) on the first violation found.
func (c *Config) Validate() error {
	if c.DemPath == "" {
		return errors.Wrap(ErrConfigError, "dem path is required")
	}
	if c.Workers <= 0 {
		return errors.Wrapf(ErrConfigError, "workers must be positive, got %d", c.Workers)
	}
	if c.RingSize <= 0 || c.RingSize&(c.RingSize-1) != 0 {
		return errors.Wrapf(ErrConfigError, "ring_size must be a power of two, got %d", c.RingSize)
	}
	if c.ArenaBytes <= 0 {
		return errors.Wrapf(ErrConfigError, "arena_bytes must be positive, got %d", c.ArenaBytes)
	}
	if c.HwOffload && c.HwMaxDepth <= 0 {
		return errors.Wrapf(ErrConfigError, "hw_max_depth must be positive when hw_offload is set, got %d", c.HwMaxDepth)
	}
	return nil
}

// Default returns the baseline configuration used when no flags or JSON
// file override it: 4 worker harts (core spec §5 "typical N=4"), a 512-
// slot ring (§9 default), and a 1 MiB per-worker arena.
func Default() Config {
	return Config{
		Workers:              4,
		RingSize:             512,
		ArenaBytes:           1 << 20,
		HwMaxDepth:           4096,
		StatsIntervalSeconds: 1,
	}
}
