package ops

// SubOp represents subtraction: out = x - y.
//
// Backward pass:
//   - d(x-y)/dx = 1, so dx = adj
//   - d(x-y)/dy = -1, so dy = -adj
type SubOp struct{}

// Name returns "sub".
func (SubOp) Name() string { return "sub" }

// Arity returns 2.
func (SubOp) Arity() int { return 2 }

// Forward computes x - y.
func (SubOp) Forward(in Inputs) (float64, error) { return in.X - in.Y, nil }

// Backward returns adj and -adj.
func (SubOp) Backward(adj float64, _ Inputs) (float64, float64, error) {
	return adj, -adj, nil
}

// NegOp represents negation: out = -x.
type NegOp struct{}

// Name returns "neg".
func (NegOp) Name() string { return "neg" }

// Arity returns 1.
func (NegOp) Arity() int { return 1 }

// Forward computes -x.
func (NegOp) Forward(in Inputs) (float64, error) { return -in.X, nil }

// Backward returns -adj.
func (NegOp) Backward(adj float64, _ Inputs) (float64, float64, error) {
	return -adj, 0, nil
}

// RSubConstOp represents a constant minus the operand: out = c - x.
type RSubConstOp struct{}

// Name returns "rsub_const".
func (RSubConstOp) Name() string { return "rsub_const" }

// Arity returns 1.
func (RSubConstOp) Arity() int { return 1 }

// Forward computes c - x.
func (RSubConstOp) Forward(in Inputs) (float64, error) { return in.C - in.X, nil }

// Backward returns -adj.
func (RSubConstOp) Backward(adj float64, _ Inputs) (float64, float64, error) {
	return -adj, 0, nil
}
