package ops

import "math"

// CosOp represents the cosine: out = cos(x), dx = -adj * sin(x).
type CosOp struct{}

// Name returns "cos".
func (CosOp) Name() string { return "cos" }

// Arity returns 1.
func (CosOp) Arity() int { return 1 }

// Forward computes cos(x).
func (CosOp) Forward(in Inputs) (float64, error) { return math.Cos(in.X), nil }

// Backward returns -adj * sin(x).
func (CosOp) Backward(adj float64, in Inputs) (float64, float64, error) {
	return -adj * math.Sin(in.X), 0, nil
}
