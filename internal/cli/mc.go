package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/born-ml/aad/internal/autodiff"
	"github.com/born-ml/aad/internal/config"
	"github.com/born-ml/aad/internal/metrics"
	"github.com/born-ml/aad/internal/pricing"
)

// MCOptions holds the mc command flags. Flags that are set override the
// configuration file.
type MCOptions struct {
	ConfigPath string
	Paths      int
	Seed       uint64
	Workers    int
	CSE        string
	Spot       float64
	Strike     float64
	Rate       float64
	Volatility float64
	Expiry     float64
	Put        bool
}

// MCResult is the mc command output.
type MCResult struct {
	RunID        string             `json:"run_id"`
	Type         string             `json:"type"`
	Price        float64            `json:"price"`
	StdErr       float64            `json:"stderr"`
	Delta        float64            `json:"delta"`
	Vega         float64            `json:"vega"`
	Rho          float64            `json:"rho"`
	Theta        float64            `json:"theta"`
	Analytic     float64            `json:"analytic_price"`
	Paths        int                `json:"paths"`
	Workers      int                `json:"workers"`
	NodesPerPath int                `json:"nodes_per_path"`
	ElapsedMs    int64              `json:"elapsed_ms"`
	Metrics      map[string]float64 `json:"metrics"`
}

// NewMCCommand creates the mc command.
func NewMCCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MCOptions{}

	cmd := &cobra.Command{
		Use:   "mc",
		Short: "Price a European option by Monte-Carlo with pathwise Greeks",
		Long: `Price a European option under geometric Brownian motion by Monte-Carlo.

Paths are split across workers, each with its own tape. Model inputs are
recorded once before the tape mark; every path is recorded after it and
propagated to the mark, so the Greeks cost one backward sweep per path.

Settings come from --config (YAML) and AAD_* environment variables;
explicitly set flags take precedence.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMC(cmd, rootOpts, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.ConfigPath, "config", "c", "", "YAML configuration file")
	f.IntVar(&opts.Paths, "paths", 0, "number of paths")
	f.Uint64Var(&opts.Seed, "seed", 0, "random seed")
	f.IntVar(&opts.Workers, "workers", 0, "worker goroutines (0 = one per CPU)")
	f.StringVar(&opts.CSE, "cse", "", "common subexpression elimination (off|structural|value)")
	f.Float64Var(&opts.Spot, "spot", 0, "spot price")
	f.Float64Var(&opts.Strike, "strike", 0, "strike")
	f.Float64Var(&opts.Rate, "rate", 0, "continuously compounded rate")
	f.Float64Var(&opts.Volatility, "vol", 0, "lognormal volatility")
	f.Float64Var(&opts.Expiry, "expiry", 0, "time to expiry in years")
	f.BoolVar(&opts.Put, "put", false, "price a put instead of a call")
	return cmd
}

func runMC(cmd *cobra.Command, rootOpts *RootOptions, opts *MCOptions) error {
	out := rootOpts.formatter(cmd)
	logger := rootOpts.logger(cmd)

	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return out.Error(ExitCommandError, ErrCodeConfig, err)
	}
	tapeOpts, err := cfg.TapeOptions()
	if err != nil {
		return out.Error(ExitCommandError, ErrCodeConfig, err)
	}

	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		return out.Error(ExitFailure, ErrCodeComputation, err)
	}
	tapeOpts = append(tapeOpts, autodiff.WithObserver(collector))

	e := pricing.European{
		Spot:       cfg.Option.Spot,
		Strike:     cfg.Option.Strike,
		Rate:       cfg.Option.Rate,
		Volatility: cfg.Option.Volatility,
		Expiry:     cfg.Option.Expiry,
		Call:       cfg.Option.Type == "call",
	}
	res, err := pricing.MonteCarloEuropean(cmd.Context(),
		pricing.MCParams{European: e, Paths: cfg.Batch.Paths, Seed: cfg.Batch.Seed},
		cfg.Parallel(),
		pricing.WithTapeOptions(tapeOpts...),
		pricing.WithLogger(logger),
	)
	if err != nil {
		return out.Error(ExitFailure, ErrCodeComputation, err)
	}
	analytic, err := pricing.AnalyticEuropean(e)
	if err != nil {
		return out.Error(ExitFailure, ErrCodeComputation, err)
	}

	counters, err := gatherCounters(reg)
	if err != nil {
		return out.Error(ExitFailure, ErrCodeComputation, err)
	}

	result := MCResult{
		RunID:        res.RunID.String(),
		Type:         cfg.Option.Type,
		Price:        res.Price,
		StdErr:       res.StdErr,
		Delta:        res.Delta,
		Vega:         res.Vega,
		Rho:          res.Rho,
		Theta:        res.Theta,
		Analytic:     analytic.Price,
		Paths:        res.Paths,
		Workers:      res.Workers,
		NodesPerPath: res.Nodes,
		ElapsedMs:    res.Elapsed.Milliseconds(),
		Metrics:      counters,
	}
	return out.Success(result, []Field{
		{"run", result.RunID},
		{"type", result.Type},
		{"price", result.Price},
		{"stderr", result.StdErr},
		{"analytic", result.Analytic},
		{"delta", result.Delta},
		{"vega", result.Vega},
		{"rho", result.Rho},
		{"theta", result.Theta},
		{"paths", result.Paths},
		{"workers", result.Workers},
		{"nodes/path", result.NodesPerPath},
		{"elapsed", res.Elapsed},
	})
}

// resolveConfig loads the configuration file and applies the flags that
// were set explicitly.
func resolveConfig(cmd *cobra.Command, opts *MCOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return cfg, err
	}

	f := cmd.Flags()
	if f.Changed("paths") {
		cfg.Batch.Paths = opts.Paths
	}
	if f.Changed("seed") {
		cfg.Batch.Seed = opts.Seed
	}
	if f.Changed("workers") {
		cfg.Batch.Workers = opts.Workers
	}
	if f.Changed("cse") {
		cfg.Tape.CSE = opts.CSE
	}
	if f.Changed("spot") {
		cfg.Option.Spot = opts.Spot
	}
	if f.Changed("strike") {
		cfg.Option.Strike = opts.Strike
	}
	if f.Changed("rate") {
		cfg.Option.Rate = opts.Rate
	}
	if f.Changed("vol") {
		cfg.Option.Volatility = opts.Volatility
	}
	if f.Changed("expiry") {
		cfg.Option.Expiry = opts.Expiry
	}
	if f.Changed("put") {
		cfg.Option.Type = optionType(!opts.Put)
	}
	return cfg, cfg.Validate()
}

// gatherCounters returns the value of every counter on reg by name.
func gatherCounters(reg *prometheus.Registry) (map[string]float64, error) {
	families, err := reg.Gather()
	if err != nil {
		return nil, err
	}
	counters := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				counters[mf.GetName()] += c.GetValue()
			}
		}
	}
	return counters, nil
}
