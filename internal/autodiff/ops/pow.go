package ops

import "math"

// PowOp represents x raised to y, both recorded: out = x^y.
//
// Backward pass:
//   - d(x^y)/dx = y * x^(y-1)
//   - d(x^y)/dy = x^y * ln(x), taken as 0 when x == 0 (out is 0 there)
//
// Negative bases are a domain error: the result is not real for
// non-integer exponents, and y is a differentiable input.
type PowOp struct{}

// Name returns "pow".
func (PowOp) Name() string { return "pow" }

// Arity returns 2.
func (PowOp) Arity() int { return 2 }

// Forward computes x^y for x >= 0.
func (PowOp) Forward(in Inputs) (float64, error) {
	if in.X < 0 {
		return 0, domainError("pow", in.X, "base must be non-negative")
	}
	return math.Pow(in.X, in.Y), nil
}

// Backward computes operand contributions for the power.
func (PowOp) Backward(adj float64, in Inputs) (float64, float64, error) {
	dx := adj * in.Y * math.Pow(in.X, in.Y-1)
	if in.X == 0 {
		return dx, 0, nil
	}
	return dx, adj * in.Out * math.Log(in.X), nil
}

// PowConstOp raises the operand to a constant power: out = x^c.
//
// Any base is allowed as long as the result is real (e.g. integer c
// for negative x).
type PowConstOp struct{}

// Name returns "pow_const".
func (PowConstOp) Name() string { return "pow_const" }

// Arity returns 1.
func (PowConstOp) Arity() int { return 1 }

// Forward computes x^c.
func (PowConstOp) Forward(in Inputs) (float64, error) {
	out := math.Pow(in.X, in.C)
	if math.IsNaN(out) {
		return 0, domainError("pow_const", in.X, "result is not real")
	}
	return out, nil
}

// Backward returns adj * c * x^(c-1).
func (PowConstOp) Backward(adj float64, in Inputs) (float64, float64, error) {
	if in.C == 0 {
		return 0, 0, nil
	}
	return adj * in.C * math.Pow(in.X, in.C-1), 0, nil
}
