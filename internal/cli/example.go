package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/born-ml/aad/internal/autodiff"
)

// ExampleResult is the example command output.
type ExampleResult struct {
	Inputs   []float64 `json:"inputs"`
	Value    float64   `json:"value"`
	Adjoints []float64 `json:"adjoints"`
	Nodes    int       `json:"nodes"`
}

// NewExampleCommand creates the example command, which differentiates
//
//	f(x) = (y1 + x3·ln y1)·(y1 + ln y1),  y1 = x2·(5·x0 + x1)
//
// at x = (1, 2, 3, 4, 5).
func NewExampleCommand(rootOpts *RootOptions) *cobra.Command {
	var cse string

	cmd := &cobra.Command{
		Use:   "example",
		Short: "Differentiate a small worked example",
		Long: `Differentiate f(x) = (y1 + x3·ln y1)·(y1 + ln y1) with y1 = x2·(5·x0 + x1)
at x = (1, 2, 3, 4, 5) and print the value and all five adjoints.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			mode, err := autodiff.ParseCSEMode(cse)
			if err != nil {
				return out.Error(ExitCommandError, ErrCodeInvalidInput, err)
			}

			res, err := runExample(autodiff.WithCSE(mode))
			if err != nil {
				return out.Error(ExitFailure, ErrCodeComputation, err)
			}
			rootOpts.logger(cmd).Debug("example differentiated", "nodes", res.Nodes, "cse", mode.String())

			fields := []Field{{"value", res.Value}}
			for i, a := range res.Adjoints {
				fields = append(fields, Field{fmt.Sprintf("d/dx%d", i), a})
			}
			fields = append(fields, Field{"nodes", res.Nodes})
			return out.Success(res, fields)
		},
	}

	cmd.Flags().StringVar(&cse, "cse", "off", "common subexpression elimination (off|structural|value)")
	return cmd
}

func runExample(opts ...autodiff.Option) (ExampleResult, error) {
	inputs := []float64{1, 2, 3, 4, 5}
	tape := autodiff.NewTape(opts...)
	x := tape.Vars(inputs...)

	y1 := x[2].Mul(x[0].MulScalar(5).Add(x[1]))
	y2 := y1.Log()
	y := y1.Add(x[3].Mul(y2)).Mul(y1.Add(y2))
	if err := y.PropagateToStart(); err != nil {
		return ExampleResult{}, err
	}

	res := ExampleResult{Inputs: inputs, Value: y.Value(), Nodes: tape.Len()}
	for _, xi := range x {
		res.Adjoints = append(res.Adjoints, xi.Adjoint())
	}
	return res, nil
}
