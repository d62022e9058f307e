package autodiff_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/born-ml/aad/internal/autodiff"
)

// expression builds a result from inputs recorded on a tape.
type expression func(x []autodiff.Number) autodiff.Number

// evaluate records f at point on a rewound tape and returns the value.
func evaluate(t *testing.T, tape *autodiff.Tape, f expression, point []float64) float64 {
	t.Helper()
	tape.Rewind()
	y := f(tape.Vars(point...))
	require.NoError(t, tape.Err())
	return y.Value()
}

// checkGradient compares one-pass adjoints with central finite differences.
func checkGradient(t *testing.T, f expression, point []float64) {
	t.Helper()
	tape := autodiff.NewTape()

	tape.Rewind()
	x := tape.Vars(point...)
	y := f(x)
	require.NoError(t, y.PropagateToStart())
	adjoints := make([]float64, len(x))
	for i := range x {
		adjoints[i] = x[i].Adjoint()
	}

	for i := range point {
		h := 1e-5 * math.Max(1, math.Abs(point[i]))
		up := append([]float64(nil), point...)
		down := append([]float64(nil), point...)
		up[i] += h
		down[i] -= h
		numerical := (evaluate(t, tape, f, up) - evaluate(t, tape, f, down)) / (2 * h)

		tol := 1e-6 * math.Max(1, math.Abs(numerical))
		if math.Abs(adjoints[i]-numerical) > tol {
			t.Errorf("∂f/∂x%d: adjoint %.12g, finite difference %.12g", i, adjoints[i], numerical)
		}
	}
}

// TestNumericalGradient_WorkedExample tests the log/mul/add example.
func TestNumericalGradient_WorkedExample(t *testing.T) {
	checkGradient(t, workedExample, []float64{1, 2, 3, 4, 5})
}

// TestNumericalGradient_Transcendental tests
// f(a) = cos(a0 + exp(a1))·(sin(a2) + cos(a3)) + a1^1.5 + a3.
func TestNumericalGradient_Transcendental(t *testing.T) {
	f := func(a []autodiff.Number) autodiff.Number {
		b1 := a[0].Add(a[1].Exp())
		b2 := a[2].Sin().Add(a[3].Cos())
		b3 := a[1].PowScalar(1.5).Add(a[3])
		return b1.Cos().Mul(b2).Add(b3)
	}
	checkGradient(t, f, []float64{1, 2, 3, 4})

	// Exact adjoints at (1, 2, 3, 4).
	tape := autodiff.NewTape()
	a := tape.Vars(1, 2, 3, 4)
	y := f(a)
	require.NoError(t, y.PropagateToStart())
	require.InDelta(t, 7.0897655276991385, y.Value(), 1e-12)
	want := []float64{0.4408885265272903, 5.379070399444665, 0.5048022208803729, 0.6141025495535274}
	for i, w := range want {
		require.InDelta(t, w, a[i].Adjoint(), 1e-12, "a%d", i)
	}
}

// TestNumericalGradient_Division tests quotients of both kinds.
func TestNumericalGradient_Division(t *testing.T) {
	f := func(x []autodiff.Number) autodiff.Number {
		return x[0].Div(x[1].AddScalar(1)).Add(x[1].RDiv(2)).Sub(x[0].DivScalar(3))
	}
	checkGradient(t, f, []float64{1.3, 0.7})
}

// TestNumericalGradient_Pow tests a power with a recorded exponent.
func TestNumericalGradient_Pow(t *testing.T) {
	f := func(x []autodiff.Number) autodiff.Number {
		return x[0].Pow(x[1]).Mul(x[1].Sqrt()).Neg()
	}
	checkGradient(t, f, []float64{1.7, 2.3})
}

// TestNumericalGradient_Black tests an undiscounted Black call,
// F·Φ(d1) − K·Φ(d2), in forward, strike, vol and expiry.
func TestNumericalGradient_Black(t *testing.T) {
	f := func(x []autodiff.Number) autodiff.Number {
		fwd, strike, vol, expiry := x[0], x[1], x[2], x[3]
		stdDev := vol.Mul(expiry.Sqrt())
		d1 := fwd.Div(strike).Log().Div(stdDev).Add(stdDev.MulScalar(0.5))
		d2 := d1.Sub(stdDev)
		return fwd.Mul(d1.NormCDF()).Sub(strike.Mul(d2.NormCDF()))
	}
	checkGradient(t, f, []float64{100, 110, 0.2, 1.5})
}

// TestNumericalGradient_MaxMin tests kinks away from the switching point.
func TestNumericalGradient_MaxMin(t *testing.T) {
	f := func(x []autodiff.Number) autodiff.Number {
		return x[0].Max(x[1]).Mul(x[2]).Add(x[0].Min(x[2]).MaxScalar(0.5)).Add(x[1].MinScalar(10))
	}
	checkGradient(t, f, []float64{2, 1, 3})
}

// TestNumericalGradient_Polynomial tests f(x) = x³ - 2x² + x.
func TestNumericalGradient_Polynomial(t *testing.T) {
	f := func(x []autodiff.Number) autodiff.Number {
		x2 := x[0].Mul(x[0])
		x3 := x2.Mul(x[0])
		return x3.Sub(x2.MulScalar(2)).Add(x[0])
	}
	checkGradient(t, f, []float64{2})

	tape := autodiff.NewTape()
	x := tape.Var(2)
	y := f([]autodiff.Number{x})
	require.NoError(t, y.PropagateToStart())
	require.Equal(t, 5.0, x.Adjoint()) // 3x² - 4x + 1
}
