// Package config loads mailaddrs settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/wesm/mailaddrs/internal/ioback"
)

// Config is the full configuration. Zero numeric values mean "use the
// backend default".
type Config struct {
	Scan   ScanConfig   `toml:"scan"`
	Search SearchConfig `toml:"search"`
	Log    LogConfig    `toml:"log"`
}

// ScanConfig controls traversal and I/O.
type ScanConfig struct {
	Backend    string `toml:"backend"`
	Workers    int    `toml:"workers"`
	Depth      int    `toml:"depth"`
	Batch      int    `toml:"batch"`
	Parsers    int    `toml:"parsers"`
	SkipHidden bool   `toml:"skip_hidden"`
}

// SearchConfig holds default search flags.
type SearchConfig struct {
	Fuzzy      bool `toml:"fuzzy"`
	IgnoreCase bool `toml:"ignore_case"`
}

// LogConfig selects the log level: debug, info, warn or error.
type LogConfig struct {
	Level string `toml:"level"`
}

// Upper bounds accepted by Validate.
const (
	MaxWorkers = 1024
	MaxDepth   = 4096
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Scan: ScanConfig{
			Backend: ioback.KindThreaded,
			Depth:   ioback.DefaultDepth,
			Batch:   ioback.DefaultBatch,
		},
		Log: LogConfig{Level: "warn"},
	}
}

// Load reads path on top of Default. Keys the file sets that Config does
// not know are returned as warnings rather than errors.
func Load(path string) (*Config, []string, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("load config %s: %w", path, err)
	}
	var warnings []string
	for _, key := range meta.Undecoded() {
		warnings = append(warnings, fmt.Sprintf("unknown config key %q", key.String()))
	}
	if err := cfg.Validate(); err != nil {
		return nil, warnings, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, warnings, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch c.Scan.Backend {
	case ioback.KindThreaded, ioback.KindBatched:
	default:
		return fmt.Errorf("%w: scan.backend %q (want %s or %s)",
			ErrInvalid, c.Scan.Backend, ioback.KindThreaded, ioback.KindBatched)
	}
	if c.Scan.Workers < 0 || c.Scan.Workers > MaxWorkers {
		return fmt.Errorf("%w: scan.workers %d out of range 0..%d", ErrInvalid, c.Scan.Workers, MaxWorkers)
	}
	if c.Scan.Depth < 0 || c.Scan.Depth > MaxDepth {
		return fmt.Errorf("%w: scan.depth %d out of range 0..%d", ErrInvalid, c.Scan.Depth, MaxDepth)
	}
	if c.Scan.Batch < 0 || c.Scan.Batch > MaxDepth {
		return fmt.Errorf("%w: scan.batch %d out of range 0..%d", ErrInvalid, c.Scan.Batch, MaxDepth)
	}
	if c.Scan.Parsers < 0 || c.Scan.Parsers > MaxWorkers {
		return fmt.Errorf("%w: scan.parsers %d out of range 0..%d", ErrInvalid, c.Scan.Parsers, MaxWorkers)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// ParseLevel maps a level name to a slog level. The empty string is warn.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", name)
}
