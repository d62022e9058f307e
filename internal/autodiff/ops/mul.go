package ops

// MulOp represents multiplication: out = x * y.
//
// Backward pass:
//   - d(x*y)/dx = y, so dx = adj * y
//   - d(x*y)/dy = x, so dy = adj * x
type MulOp struct{}

// Name returns "mul".
func (MulOp) Name() string { return "mul" }

// Arity returns 2.
func (MulOp) Arity() int { return 2 }

// Forward computes x * y.
func (MulOp) Forward(in Inputs) (float64, error) { return in.X * in.Y, nil }

// Backward computes operand contributions for multiplication.
func (MulOp) Backward(adj float64, in Inputs) (float64, float64, error) {
	return adj * in.Y, adj * in.X, nil
}

// MulConstOp scales the operand by a constant: out = c * x.
type MulConstOp struct{}

// Name returns "mul_const".
func (MulConstOp) Name() string { return "mul_const" }

// Arity returns 1.
func (MulConstOp) Arity() int { return 1 }

// Forward computes c * x.
func (MulConstOp) Forward(in Inputs) (float64, error) { return in.C * in.X, nil }

// Backward returns adj * c.
func (MulConstOp) Backward(adj float64, in Inputs) (float64, float64, error) {
	return adj * in.C, 0, nil
}
