package ops

import "math"

// ExpOp represents the exponential: out = exp(x).
//
// Backward: dx = adj * exp(x) = adj * out.
type ExpOp struct{}

// Name returns "exp".
func (ExpOp) Name() string { return "exp" }

// Arity returns 1.
func (ExpOp) Arity() int { return 1 }

// Forward computes exp(x).
func (ExpOp) Forward(in Inputs) (float64, error) { return math.Exp(in.X), nil }

// Backward reuses the recorded output.
func (ExpOp) Backward(adj float64, in Inputs) (float64, float64, error) {
	return adj * in.Out, 0, nil
}
