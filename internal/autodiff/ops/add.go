package ops

// AddOp represents addition: out = x + y.
//
// Backward pass:
//   - d(x+y)/dx = 1, so dx = adj
//   - d(x+y)/dy = 1, so dy = adj
type AddOp struct{}

// Name returns "add".
func (AddOp) Name() string { return "add" }

// Arity returns 2.
func (AddOp) Arity() int { return 2 }

// Forward computes x + y.
func (AddOp) Forward(in Inputs) (float64, error) { return in.X + in.Y, nil }

// Backward flows the adjoint equally to both operands.
func (AddOp) Backward(adj float64, _ Inputs) (float64, float64, error) {
	return adj, adj, nil
}

// AddConstOp represents addition of a constant: out = x + c.
type AddConstOp struct{}

// Name returns "add_const".
func (AddConstOp) Name() string { return "add_const" }

// Arity returns 1.
func (AddConstOp) Arity() int { return 1 }

// Forward computes x + c.
func (AddConstOp) Forward(in Inputs) (float64, error) { return in.X + in.C, nil }

// Backward returns adj for x.
func (AddConstOp) Backward(adj float64, _ Inputs) (float64, float64, error) {
	return adj, 0, nil
}
