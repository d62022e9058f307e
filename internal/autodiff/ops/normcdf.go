package ops

import "math"

// NormCDFOp is the standard normal distribution function: out = Φ(x).
//
// Backward: dx = adj * φ(x), with φ the standard normal density.
type NormCDFOp struct{}

// Name returns "normcdf".
func (NormCDFOp) Name() string { return "normcdf" }

// Arity returns 1.
func (NormCDFOp) Arity() int { return 1 }

// Forward computes Φ(x) = erfc(-x/√2) / 2.
func (NormCDFOp) Forward(in Inputs) (float64, error) {
	return 0.5 * math.Erfc(-in.X/math.Sqrt2), nil
}

// Backward returns adj * φ(x).
func (NormCDFOp) Backward(adj float64, in Inputs) (float64, float64, error) {
	return adj * NormPDF(in.X), 0, nil
}

// NormPDF returns the standard normal density φ(x).
func NormPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}
