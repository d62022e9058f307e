package cli

import (
	"github.com/spf13/cobra"

	"github.com/born-ml/aad/internal/pricing"
)

// BlackResult is the black command output.
type BlackResult struct {
	Type       string  `json:"type"`
	Price      float64 `json:"price"`
	Forward    float64 `json:"d_forward"`
	Volatility float64 `json:"d_volatility"`
	Numeraire  float64 `json:"d_numeraire"`
	Strike     float64 `json:"d_strike"`
	Expiry     float64 `json:"d_expiry"`
}

// NewBlackCommand creates the black command.
func NewBlackCommand(rootOpts *RootOptions) *cobra.Command {
	p := pricing.BlackParams{Forward: 100, Volatility: 0.2, Numeraire: 1, Strike: 100, Expiry: 1}
	var put bool

	cmd := &cobra.Command{
		Use:   "black",
		Short: "Price with the Black formula and print all sensitivities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			p.Call = !put
			if err := p.Validate(); err != nil {
				return out.Error(ExitCommandError, ErrCodeInvalidInput, err)
			}

			g, err := pricing.BlackGreeks(p)
			if err != nil {
				return out.Error(ExitFailure, ErrCodeComputation, err)
			}

			res := BlackResult{
				Type:       optionType(p.Call),
				Price:      g.Price,
				Forward:    g.Forward,
				Volatility: g.Volatility,
				Numeraire:  g.Numeraire,
				Strike:     g.Strike,
				Expiry:     g.Expiry,
			}
			return out.Success(res, []Field{
				{"type", res.Type},
				{"price", res.Price},
				{"d/dforward", res.Forward},
				{"d/dvolatility", res.Volatility},
				{"d/dnumeraire", res.Numeraire},
				{"d/dstrike", res.Strike},
				{"d/dexpiry", res.Expiry},
			})
		},
	}

	f := cmd.Flags()
	f.Float64Var(&p.Forward, "forward", p.Forward, "forward price")
	f.Float64Var(&p.Volatility, "vol", p.Volatility, "lognormal volatility")
	f.Float64Var(&p.Numeraire, "numeraire", p.Numeraire, "discount factor to expiry")
	f.Float64Var(&p.Strike, "strike", p.Strike, "strike")
	f.Float64Var(&p.Expiry, "expiry", p.Expiry, "time to expiry in years")
	f.BoolVar(&put, "put", false, "price a put instead of a call")
	return cmd
}

func optionType(call bool) string {
	if call {
		return "call"
	}
	return "put"
}
