package ops

import "math"

// SinOp represents the sine: out = sin(x), dx = adj * cos(x).
type SinOp struct{}

// Name returns "sin".
func (SinOp) Name() string { return "sin" }

// Arity returns 1.
func (SinOp) Arity() int { return 1 }

// Forward computes sin(x).
func (SinOp) Forward(in Inputs) (float64, error) { return math.Sin(in.X), nil }

// Backward returns adj * cos(x).
func (SinOp) Backward(adj float64, in Inputs) (float64, float64, error) {
	return adj * math.Cos(in.X), 0, nil
}
