// Package parallel splits batch work across goroutines that each own their
// own tape.
package parallel

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 256, // A few hundred paths amortize a tape.
	}
}

// Chunk is the half-open item range [Start, End) handled by one worker.
type Chunk struct {
	Worker     int
	Start, End int
}

// Chunks splits n items into contiguous ranges, one per worker.
// Falls back to a single chunk if parallelism is disabled or n is too small.
func Chunks(n int, cfg Config) []Chunk {
	if n <= 0 {
		return nil
	}
	if !cfg.Enabled || cfg.NumWorkers <= 1 || n < 2*max(cfg.MinChunkSize, 1) {
		return []Chunk{{Worker: 0, Start: 0, End: n}}
	}

	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize)
	chunks := make([]Chunk, 0, cfg.NumWorkers)
	for start := 0; start < n; start += chunkSize {
		chunks = append(chunks, Chunk{
			Worker: len(chunks),
			Start:  start,
			End:    min(start+chunkSize, n),
		})
	}
	return chunks
}

// Run executes fn once per chunk of [0, n), concurrently.
//
// fn receives a context that is canceled as soon as any worker fails, the
// worker number and its item range. Workers must not share tapes; each one
// creates its own and rewinds it between items.
//
// Returns the first worker error, annotated with the worker number.
func Run(ctx context.Context, n int, cfg Config, fn func(ctx context.Context, worker, start, end int) error) error {
	chunks := Chunks(n, cfg)
	if len(chunks) == 1 {
		c := chunks[0]
		if err := fn(ctx, c.Worker, c.Start, c.End); err != nil {
			return fmt.Errorf("parallel: worker %d: %w", c.Worker, err)
		}
		return nil
	}

	g, gCtx := errgroup.WithContext(ctx)
	for _, c := range chunks {
		c := c
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			if err := fn(gCtx, c.Worker, c.Start, c.End); err != nil {
				return fmt.Errorf("parallel: worker %d: %w", c.Worker, err)
			}
			return nil
		})
	}
	return g.Wait()
}
