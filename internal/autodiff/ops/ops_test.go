package ops_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/aad/internal/autodiff/ops"
)

// centralDiff estimates ∂f/∂x with a central finite difference.
func centralDiff(f func(float64) float64, x float64) float64 {
	h := 1e-6 * math.Max(1, math.Abs(x))
	return (f(x+h) - f(x-h)) / (2 * h)
}

func forward(t *testing.T, op ops.Operation, in ops.Inputs) float64 {
	t.Helper()
	out, err := op.Forward(in)
	require.NoError(t, err)
	return out
}

func TestBackward_MatchesFiniteDifferences(t *testing.T) {
	tests := []struct {
		name string
		op   ops.Operation
		in   ops.Inputs
	}{
		{"add", ops.AddOp{}, ops.Inputs{X: 1.5, Y: -2}},
		{"sub", ops.SubOp{}, ops.Inputs{X: 1.5, Y: -2}},
		{"mul", ops.MulOp{}, ops.Inputs{X: 1.5, Y: -2}},
		{"div", ops.DivOp{}, ops.Inputs{X: 1.5, Y: -2}},
		{"neg", ops.NegOp{}, ops.Inputs{X: 0.7}},
		{"add_const", ops.AddConstOp{}, ops.Inputs{X: 0.7, C: 3}},
		{"mul_const", ops.MulConstOp{}, ops.Inputs{X: 0.7, C: 5}},
		{"rsub_const", ops.RSubConstOp{}, ops.Inputs{X: 0.7, C: 5}},
		{"rdiv_const", ops.RDivConstOp{}, ops.Inputs{X: 0.7, C: 5}},
		{"div_const", ops.DivConstOp{}, ops.Inputs{X: 0.7, C: 3}},
		{"pow_const", ops.PowConstOp{}, ops.Inputs{X: 2, C: 1.5}},
		{"pow_const_negative_base", ops.PowConstOp{}, ops.Inputs{X: -2, C: 3}},
		{"log", ops.LogOp{}, ops.Inputs{X: 21}},
		{"exp", ops.ExpOp{}, ops.Inputs{X: 0.3}},
		{"sin", ops.SinOp{}, ops.Inputs{X: 3}},
		{"cos", ops.CosOp{}, ops.Inputs{X: 4}},
		{"sqrt", ops.SqrtOp{}, ops.Inputs{X: 2.25}},
		{"pow", ops.PowOp{}, ops.Inputs{X: 2, Y: 1.5}},
		{"max_x", ops.MaxOp{}, ops.Inputs{X: 3, Y: 1}},
		{"max_y", ops.MaxOp{}, ops.Inputs{X: 1, Y: 3}},
		{"min_x", ops.MinOp{}, ops.Inputs{X: 1, Y: 3}},
		{"min_y", ops.MinOp{}, ops.Inputs{X: 3, Y: 1}},
		{"max_const_above", ops.MaxConstOp{}, ops.Inputs{X: 3, C: 1}},
		{"max_const_below", ops.MaxConstOp{}, ops.Inputs{X: -3, C: 1}},
		{"min_const_below", ops.MinConstOp{}, ops.Inputs{X: -3, C: 1}},
		{"normcdf", ops.NormCDFOp{}, ops.Inputs{X: 0.4}},
	}

	const adj = 1.7
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			in.Out = forward(t, tt.op, in)

			dx, dy, err := tt.op.Backward(adj, in)
			require.NoError(t, err)

			fx := func(x float64) float64 {
				shifted := tt.in
				shifted.X = x
				return forward(t, tt.op, shifted)
			}
			assert.InDelta(t, adj*centralDiff(fx, tt.in.X), dx, 1e-6*math.Max(1, math.Abs(dx)))

			if tt.op.Arity() == 2 {
				fy := func(y float64) float64 {
					shifted := tt.in
					shifted.Y = y
					return forward(t, tt.op, shifted)
				}
				assert.InDelta(t, adj*centralDiff(fy, tt.in.Y), dy, 1e-6*math.Max(1, math.Abs(dy)))
			} else {
				assert.Zero(t, dy)
			}
		})
	}
}

func TestForward_DomainErrors(t *testing.T) {
	tests := []struct {
		name string
		op   ops.Operation
		in   ops.Inputs
	}{
		{"log_zero", ops.LogOp{}, ops.Inputs{X: 0}},
		{"log_negative", ops.LogOp{}, ops.Inputs{X: -1}},
		{"log_nan", ops.LogOp{}, ops.Inputs{X: math.NaN()}},
		{"div_zero", ops.DivOp{}, ops.Inputs{X: 1, Y: 0}},
		{"rdiv_zero", ops.RDivConstOp{}, ops.Inputs{X: 0, C: 1}},
		{"div_const_zero", ops.DivConstOp{}, ops.Inputs{X: 1, C: 0}},
		{"sqrt_negative", ops.SqrtOp{}, ops.Inputs{X: -4}},
		{"pow_negative_base", ops.PowOp{}, ops.Inputs{X: -2, Y: 0.5}},
		{"pow_const_not_real", ops.PowConstOp{}, ops.Inputs{X: -2, C: 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.op.Forward(tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ops.ErrDomain), "want ErrDomain, got %v", err)

			var de *ops.DomainError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.op.Name(), de.Op)
		})
	}
}

func TestSqrt_BackwardAtZero(t *testing.T) {
	out, err := ops.SqrtOp{}.Forward(ops.Inputs{X: 0})
	require.NoError(t, err)
	assert.Zero(t, out)

	_, _, err = ops.SqrtOp{}.Backward(1, ops.Inputs{X: 0, Out: 0})
	assert.ErrorIs(t, err, ops.ErrDomain)
}

func TestPow_ZeroBase(t *testing.T) {
	in := ops.Inputs{X: 0, Y: 2}
	out, err := ops.PowOp{}.Forward(in)
	require.NoError(t, err)
	in.Out = out

	dx, dy, err := ops.PowOp{}.Backward(1, in)
	require.NoError(t, err)
	assert.Zero(t, dx)
	assert.Zero(t, dy, "exponent derivative is zero where the result is zero")
}

func TestMax_TieSelectsFirst(t *testing.T) {
	dx, dy, err := ops.MaxOp{}.Backward(1, ops.Inputs{X: 2, Y: 2, Out: 2})
	require.NoError(t, err)
	assert.Equal(t, 1.0, dx)
	assert.Equal(t, 0.0, dy)
}

func TestNormCDF_Values(t *testing.T) {
	out, err := ops.NormCDFOp{}.Forward(ops.Inputs{X: 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, out, 1e-15)

	out, err = ops.NormCDFOp{}.Forward(ops.Inputs{X: 1.959963984540054})
	require.NoError(t, err)
	assert.InDelta(t, 0.975, out, 1e-12)

	assert.InDelta(t, 0.3989422804014327, ops.NormPDF(0), 1e-15)
}
