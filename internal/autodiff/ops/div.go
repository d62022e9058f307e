package ops

// DivOp represents division: out = x / y.
//
// Backward pass:
//   - d(x/y)/dx = 1/y, so dx = adj / y
//   - d(x/y)/dy = -x/y², so dy = -adj * out / y
type DivOp struct{}

// Name returns "div".
func (DivOp) Name() string { return "div" }

// Arity returns 2.
func (DivOp) Arity() int { return 2 }

// Forward computes x / y. A zero divisor is a domain error.
func (DivOp) Forward(in Inputs) (float64, error) {
	if in.Y == 0 {
		return 0, domainError("div", in.Y, "division by zero")
	}
	return in.X / in.Y, nil
}

// Backward computes operand contributions for division.
func (DivOp) Backward(adj float64, in Inputs) (float64, float64, error) {
	return adj / in.Y, -adj * in.Out / in.Y, nil
}

// RDivConstOp divides a constant by the operand: out = c / x.
type RDivConstOp struct{}

// Name returns "rdiv_const".
func (RDivConstOp) Name() string { return "rdiv_const" }

// Arity returns 1.
func (RDivConstOp) Arity() int { return 1 }

// Forward computes c / x. A zero operand is a domain error.
func (RDivConstOp) Forward(in Inputs) (float64, error) {
	if in.X == 0 {
		return 0, domainError("rdiv_const", in.X, "division by zero")
	}
	return in.C / in.X, nil
}

// Backward returns -adj * c / x².
func (RDivConstOp) Backward(adj float64, in Inputs) (float64, float64, error) {
	return -adj * in.Out / in.X, 0, nil
}

// DivConstOp divides the operand by a constant: out = x / c.
type DivConstOp struct{}

// Name returns "div_const".
func (DivConstOp) Name() string { return "div_const" }

// Arity returns 1.
func (DivConstOp) Arity() int { return 1 }

// Forward computes x / c. A zero constant is a domain error.
func (DivConstOp) Forward(in Inputs) (float64, error) {
	if in.C == 0 {
		return 0, domainError("div_const", in.C, "division by zero")
	}
	return in.X / in.C, nil
}

// Backward returns adj / c.
func (DivConstOp) Backward(adj float64, in Inputs) (float64, float64, error) {
	return adj / in.C, 0, nil
}
