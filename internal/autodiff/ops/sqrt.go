package ops

import "math"

// SqrtOp represents the square root: out = sqrt(x).
//
// Backward pass:
//   - d(sqrt(x))/dx = 1 / (2 * sqrt(x)) = 0.5 / out
//
// sqrt(0) evaluates to 0, but its derivative is unbounded: Backward reports
// a domain error if a non-zero adjoint reaches a node with x == 0.
type SqrtOp struct{}

// Name returns "sqrt".
func (SqrtOp) Name() string { return "sqrt" }

// Arity returns 1.
func (SqrtOp) Arity() int { return 1 }

// Forward computes sqrt(x) for x >= 0.
func (SqrtOp) Forward(in Inputs) (float64, error) {
	if in.X < 0 {
		return 0, domainError("sqrt", in.X, "operand must be non-negative")
	}
	return math.Sqrt(in.X), nil
}

// Backward returns adj * 0.5 / out.
func (SqrtOp) Backward(adj float64, in Inputs) (float64, float64, error) {
	if in.Out == 0 {
		return 0, 0, domainError("sqrt", in.X, "derivative undefined at zero")
	}
	return adj * 0.5 / in.Out, 0, nil
}
