package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/born-ml/aad/internal/autodiff"
	"github.com/born-ml/aad/internal/parallel"
)

// cancelCheckInterval is the number of paths between context checks.
const cancelCheckInterval = 1024

// MCParams configures a Monte-Carlo valuation.
type MCParams struct {
	European
	Paths int
	Seed  uint64
}

// Validate checks the option and the path count.
func (p MCParams) Validate() error {
	if p.Paths < 2 {
		return fmt.Errorf("%w: paths must be at least 2, got %d", ErrInvalidParams, p.Paths)
	}
	return p.European.Validate()
}

// MCResult is a Monte-Carlo price with pathwise Greeks.
type MCResult struct {
	Sensitivities
	StdErr  float64 // standard error of Price
	Paths   int
	Workers int
	Nodes   int // tape length per path, model inputs included
	RunID   uuid.UUID
	Elapsed time.Duration
}

// MCOption configures MonteCarloEuropean.
type MCOption func(*mcOptions)

type mcOptions struct {
	tape   []autodiff.Option
	logger *slog.Logger
	runID  uuid.UUID
}

// WithTapeOptions configures every worker's tape.
func WithTapeOptions(opts ...autodiff.Option) MCOption {
	return func(o *mcOptions) { o.tape = append(o.tape, opts...) }
}

// WithLogger sets the run logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) MCOption {
	return func(o *mcOptions) { o.logger = l }
}

// WithRunID tags the run. Defaults to a random UUID.
func WithRunID(id uuid.UUID) MCOption {
	return func(o *mcOptions) { o.runID = id }
}

// partial holds one worker's sums over its paths.
type partial struct {
	sum, sumSq float64
	adjoints   [4]float64 // spot, volatility, rate, expiry
	nodes      int
}

func (p *partial) merge(q partial) {
	p.sum += q.sum
	p.sumSq += q.sumSq
	for i := range p.adjoints {
		p.adjoints[i] += q.adjoints[i]
	}
	p.nodes = max(p.nodes, q.nodes)
}

// MonteCarloEuropean values a European option by simulating the terminal
// spot under geometric Brownian motion,
//
//	S_T = S·exp((r − σ²/2)·T + σ·√T·Z),  payoff = e^{−rT}·max(ω·(S_T − K), 0)
//
// and returns the mean discounted payoff with pathwise Greeks.
//
// Paths are split across workers by cfg. Each worker owns one tape: the model
// inputs and path-independent terms are recorded once before the tape mark,
// and every path is recorded after it, propagated to the mark and rewound.
// A final sweep from the mark carries the summed adjoints to the inputs.
//
// Path i draws its normal variate from a generator seeded from (Seed, i), so
// results do not depend on the number of workers beyond summation order.
func MonteCarloEuropean(ctx context.Context, p MCParams, cfg parallel.Config, opts ...MCOption) (MCResult, error) {
	if err := p.Validate(); err != nil {
		return MCResult{}, err
	}
	o := mcOptions{logger: slog.Default(), runID: uuid.New()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.With(slog.String("run_id", o.runID.String()))

	chunks := parallel.Chunks(p.Paths, cfg)
	logger.Debug("monte carlo started",
		slog.Int("paths", p.Paths),
		slog.Int("workers", len(chunks)),
		slog.Uint64("seed", p.Seed),
	)

	start := time.Now()
	var (
		mu    sync.Mutex
		total partial
	)
	err := parallel.Run(ctx, p.Paths, cfg, func(ctx context.Context, _, from, to int) error {
		part, err := simulate(ctx, p, from, to, o.tape)
		if err != nil {
			return err
		}
		mu.Lock()
		total.merge(part)
		mu.Unlock()
		return nil
	})
	if err != nil {
		logger.Error("monte carlo failed", slog.String("error", err.Error()))
		return MCResult{}, fmt.Errorf("pricing: monte carlo: %w", err)
	}

	n := float64(p.Paths)
	mean := total.sum / n
	variance := max(total.sumSq/n-mean*mean, 0) * n / (n - 1)
	res := MCResult{
		Sensitivities: Sensitivities{
			Price: mean,
			Delta: total.adjoints[0] / n,
			Vega:  total.adjoints[1] / n,
			Rho:   total.adjoints[2] / n,
			Theta: -total.adjoints[3] / n,
		},
		StdErr:  math.Sqrt(variance / n),
		Paths:   p.Paths,
		Workers: len(chunks),
		Nodes:   total.nodes,
		RunID:   o.runID,
		Elapsed: time.Since(start),
	}

	logger.Info("monte carlo finished",
		slog.Float64("price", res.Price),
		slog.Float64("stderr", res.StdErr),
		slog.Int("paths", res.Paths),
		slog.Int("workers", res.Workers),
		slog.Duration("duration", res.Elapsed),
	)
	return res, nil
}

// simulate runs paths [from, to) on a fresh tape.
func simulate(ctx context.Context, p MCParams, from, to int, opts []autodiff.Option) (partial, error) {
	tape := autodiff.NewTape(opts...)
	defer tape.Rewind()

	x := europeanInputs(tape, p.European)
	spot, vol, rate, expiry := x[0], x[1], x[2], x[3]

	// Path-independent terms.
	drift := rate.Sub(vol.Mul(vol).MulScalar(0.5)).Mul(expiry)
	diffusion := vol.Mul(expiry.Sqrt())
	discount := rate.Mul(expiry).Neg().Exp()
	if err := tape.Err(); err != nil {
		return partial{}, err
	}
	tape.SetMark()

	var (
		part partial
		src  = rand.NewPCG(p.Seed, 0)
		rng  = rand.New(src)
	)
	for i := from; i < to; i++ {
		if (i-from)%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return partial{}, err
			}
		}
		src.Seed(p.Seed, splitmix64(uint64(i)))
		z := rng.NormFloat64()

		tape.RewindToMark()
		terminal := spot.Mul(drift.Add(diffusion.MulScalar(z)).Exp())
		var intrinsic autodiff.Number
		if p.Call {
			intrinsic = terminal.SubScalar(p.Strike)
		} else {
			intrinsic = terminal.RSub(p.Strike)
		}
		payoff := intrinsic.MaxScalar(0).Mul(discount)
		if err := payoff.PropagateToMark(); err != nil {
			return partial{}, fmt.Errorf("path %d: %w", i, err)
		}

		v := payoff.Value()
		part.sum += v
		part.sumSq += v * v
		part.nodes = tape.Len()
	}

	if err := tape.PropagateMarkToStart(); err != nil {
		return partial{}, err
	}
	for k, in := range x {
		part.adjoints[k] = in.Adjoint()
	}
	return part, nil
}

// splitmix64 scrambles a path index into a generator stream selector.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
