package ops

// LeafOp marks an input node. It has no operands and terminates propagation.
type LeafOp struct{}

// Name returns "leaf".
func (LeafOp) Name() string { return "leaf" }

// Arity returns 0.
func (LeafOp) Arity() int { return 0 }

// Forward returns the caller-supplied value carried in C.
func (LeafOp) Forward(in Inputs) (float64, error) { return in.C, nil }

// Backward is a no-op: leaves have no operands.
func (LeafOp) Backward(float64, Inputs) (float64, float64, error) { return 0, 0, nil }
