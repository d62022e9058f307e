package ops

import "math"

// LogOp represents the natural logarithm: out = ln(x).
//
// Backward:
//
//	dx = adj * (1 / x)
//
// Operands must be strictly positive; anything else is a domain error
// rather than a NaN or -Inf flowing into the graph.
type LogOp struct{}

// Name returns "log".
func (LogOp) Name() string { return "log" }

// Arity returns 1.
func (LogOp) Arity() int { return 1 }

// Forward computes ln(x).
func (LogOp) Forward(in Inputs) (float64, error) {
	if !(in.X > 0) {
		return 0, domainError("log", in.X, "operand must be positive")
	}
	return math.Log(in.X), nil
}

// Backward returns adj / x.
func (LogOp) Backward(adj float64, in Inputs) (float64, float64, error) {
	if !(in.X > 0) {
		return 0, 0, domainError("log", in.X, "operand must be positive")
	}
	return adj / in.X, 0, nil
}
