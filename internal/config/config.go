// Package config loads tape and batch settings from YAML.
//
// Settings are resolved in order: built-in defaults, the YAML file, then
// AAD_* environment variables. The result is validated before use.
//
// Example file:
//
//	tape:
//	  capacity: 65536
//	  cse: structural
//	batch:
//	  workers: 8
//	  paths: 200000
//	  seed: 42
//	option:
//	  type: call
//	  spot: 100
//	  strike: 105
//	  rate: 0.03
//	  volatility: 0.2
//	  expiry: 1.5
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/aad/internal/autodiff"
	"github.com/born-ml/aad/internal/parallel"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config is the complete run configuration.
type Config struct {
	Tape   TapeConfig   `yaml:"tape"`
	Batch  BatchConfig  `yaml:"batch"`
	Option OptionConfig `yaml:"option"`
}

// TapeConfig sizes each tape.
type TapeConfig struct {
	Capacity int    `yaml:"capacity"`
	CSE      string `yaml:"cse"` // off, structural or value
}

// BatchConfig controls Monte-Carlo batches.
type BatchConfig struct {
	Workers  int    `yaml:"workers"`   // 0 means one per CPU
	MinChunk int    `yaml:"min_chunk"` // minimum paths per worker
	Paths    int    `yaml:"paths"`
	Seed     uint64 `yaml:"seed"`
}

// OptionConfig describes a European option on a lognormal underlying.
type OptionConfig struct {
	Type       string  `yaml:"type"` // call or put
	Spot       float64 `yaml:"spot"`
	Strike     float64 `yaml:"strike"`
	Rate       float64 `yaml:"rate"`
	Volatility float64 `yaml:"volatility"`
	Expiry     float64 `yaml:"expiry"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Tape: TapeConfig{
			Capacity: autodiff.DefaultCapacity,
			CSE:      autodiff.CSEOff.String(),
		},
		Batch: BatchConfig{
			Workers:  0,
			MinChunk: parallel.DefaultConfig().MinChunkSize,
			Paths:    100_000,
			Seed:     1,
		},
		Option: OptionConfig{
			Type:       "call",
			Spot:       100,
			Strike:     100,
			Rate:       0.02,
			Volatility: 0.2,
			Expiry:     1,
		},
	}
}

// Parse decodes YAML on top of the defaults and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Load reads path (defaults only when path is empty), applies AAD_*
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: load %s: %w", path, err)
		}
		if cfg, err = Parse(data); err != nil {
			return cfg, fmt.Errorf("config: load %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides batch settings from AAD_WORKERS, AAD_PATHS, AAD_SEED
// and the CSE mode from AAD_CSE.
func applyEnv(cfg *Config, getenv func(string) string) error {
	ints := []struct {
		name string
		dst  *int
	}{
		{"AAD_WORKERS", &cfg.Batch.Workers},
		{"AAD_PATHS", &cfg.Batch.Paths},
	}
	for _, v := range ints {
		s := getenv(v.name)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalid, v.name, s, err)
		}
		*v.dst = n
	}
	if s := getenv("AAD_SEED"); s != "" {
		seed, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: AAD_SEED=%q: %v", ErrInvalid, s, err)
		}
		cfg.Batch.Seed = seed
	}
	if s := getenv("AAD_CSE"); s != "" {
		cfg.Tape.CSE = s
	}
	return nil
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	if c.Tape.Capacity <= 0 {
		return fmt.Errorf("%w: tape.capacity must be positive, got %d", ErrInvalid, c.Tape.Capacity)
	}
	if _, err := autodiff.ParseCSEMode(c.Tape.CSE); err != nil {
		return fmt.Errorf("%w: tape.cse: %v", ErrInvalid, err)
	}
	if c.Batch.Workers < 0 {
		return fmt.Errorf("%w: batch.workers must not be negative, got %d", ErrInvalid, c.Batch.Workers)
	}
	if c.Batch.Paths <= 0 {
		return fmt.Errorf("%w: batch.paths must be positive, got %d", ErrInvalid, c.Batch.Paths)
	}
	if c.Batch.MinChunk < 0 {
		return fmt.Errorf("%w: batch.min_chunk must not be negative, got %d", ErrInvalid, c.Batch.MinChunk)
	}
	if c.Option.Type != "call" && c.Option.Type != "put" {
		return fmt.Errorf("%w: option.type must be call or put, got %q", ErrInvalid, c.Option.Type)
	}
	positive := []struct {
		name string
		v    float64
	}{
		{"option.spot", c.Option.Spot},
		{"option.strike", c.Option.Strike},
		{"option.volatility", c.Option.Volatility},
		{"option.expiry", c.Option.Expiry},
	}
	for _, p := range positive {
		if !(p.v > 0) {
			return fmt.Errorf("%w: %s must be positive, got %g", ErrInvalid, p.name, p.v)
		}
	}
	return nil
}

// TapeOptions converts the tape section into tape options.
func (c Config) TapeOptions() ([]autodiff.Option, error) {
	mode, err := autodiff.ParseCSEMode(c.Tape.CSE)
	if err != nil {
		return nil, fmt.Errorf("%w: tape.cse: %v", ErrInvalid, err)
	}
	if c.Tape.Capacity <= 0 {
		return nil, fmt.Errorf("%w: tape.capacity must be positive, got %d", ErrInvalid, c.Tape.Capacity)
	}
	return []autodiff.Option{
		autodiff.WithCapacity(c.Tape.Capacity),
		autodiff.WithCSE(mode),
	}, nil
}

// Parallel converts the batch section into a worker pool configuration.
func (c Config) Parallel() parallel.Config {
	workers := c.Batch.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	return parallel.Config{
		Enabled:      workers > 1,
		NumWorkers:   workers,
		MinChunkSize: c.Batch.MinChunk,
	}
}
