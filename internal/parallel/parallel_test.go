package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/born-ml/aad/internal/autodiff"
)

func TestRun(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 10}

	var counter int64
	seen := make([]int32, 1000)
	err := Run(context.Background(), len(seen), cfg, func(_ context.Context, _, start, end int) error {
		for i := start; i < end; i++ {
			atomic.AddInt32(&seen[i], 1)
			atomic.AddInt64(&counter, 1)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if counter != int64(len(seen)) {
		t.Errorf("Expected %d, got %d", len(seen), counter)
	}
	for i, n := range seen {
		if n != 1 {
			t.Fatalf("item %d visited %d times", i, n)
		}
	}
}

func TestRun_Sequential(t *testing.T) {
	cfg := Config{Enabled: false}

	var workers []int
	err := Run(context.Background(), 100, cfg, func(_ context.Context, worker, start, end int) error {
		workers = append(workers, worker)
		if start != 0 || end != 100 {
			t.Errorf("range = [%d, %d), want [0, 100)", start, end)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(workers) != 1 || workers[0] != 0 {
		t.Errorf("workers = %v, want [0]", workers)
	}
}

func TestRun_SmallChunk(t *testing.T) {
	// Test that small batches fall back to one worker.
	cfg := Config{Enabled: true, NumWorkers: 8, MinChunkSize: 64}

	var calls int64
	err := Run(context.Background(), 100, cfg, func(context.Context, int, int, int) error {
		atomic.AddInt64(&calls, 1)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestRun_FirstErrorCancels(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1}
	boom := errors.New("boom")

	err := Run(context.Background(), 4, cfg, func(ctx context.Context, worker, _, _ int) error {
		if worker == 2 {
			return boom
		}
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want boom", err)
	}
}

func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := Config{Enabled: true, NumWorkers: 2, MinChunkSize: 1}
	err := Run(ctx, 10, cfg, func(ctx context.Context, _, _, _ int) error {
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestChunks(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 3, MinChunkSize: 2}
	chunks := Chunks(10, cfg)

	if len(chunks) != 3 {
		t.Fatalf("len(chunks) = %d, want 3", len(chunks))
	}
	next := 0
	for i, c := range chunks {
		if c.Worker != i || c.Start != next || c.End <= c.Start {
			t.Errorf("chunk %d = %+v", i, c)
		}
		next = c.End
	}
	if next != 10 {
		t.Errorf("chunks end at %d, want 10", next)
	}

	if got := Chunks(0, cfg); got != nil {
		t.Errorf("Chunks(0) = %v, want nil", got)
	}
}

// TestRun_TapePerWorker sums gradients computed on per-worker tapes.
func TestRun_TapePerWorker(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 8}
	n := 64
	grads := make([]float64, n)

	err := Run(context.Background(), n, cfg, func(_ context.Context, _, start, end int) error {
		tape := autodiff.NewTape(autodiff.WithCapacity(16))
		for i := start; i < end; i++ {
			tape.Rewind()
			x := tape.Var(float64(i))
			y := x.Mul(x)
			if err := y.PropagateToStart(); err != nil {
				return err
			}
			grads[i] = x.Adjoint()
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	for i, g := range grads {
		if g != 2*float64(i) {
			t.Fatalf("grads[%d] = %v, want %v", i, g, 2*float64(i))
		}
	}
}

func BenchmarkRun(b *testing.B) {
	cfg := DefaultConfig()
	n := 10000

	b.Run("parallel", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			var sum int64
			_ = Run(context.Background(), n, cfg, func(_ context.Context, _, start, end int) error {
				for k := start; k < end; k++ {
					atomic.AddInt64(&sum, int64(k))
				}
				return nil
			})
		}
	})

	b.Run("sequential", func(b *testing.B) {
		cfgSeq := cfg
		cfgSeq.Enabled = false
		for i := 0; i < b.N; i++ {
			var sum int64
			_ = Run(context.Background(), n, cfgSeq, func(_ context.Context, _, start, end int) error {
				for k := start; k < end; k++ {
					atomic.AddInt64(&sum, int64(k))
				}
				return nil
			})
		}
	})
}
