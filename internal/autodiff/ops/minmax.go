package ops

// MaxOp selects the larger operand: out = max(x, y).
//
// The adjoint flows only to the selected operand. Ties select x, so the
// derivative at x == y is the one-sided derivative of x.
type MaxOp struct{}

// Name returns "max".
func (MaxOp) Name() string { return "max" }

// Arity returns 2.
func (MaxOp) Arity() int { return 2 }

// Forward computes max(x, y).
func (MaxOp) Forward(in Inputs) (float64, error) {
	if in.X >= in.Y {
		return in.X, nil
	}
	return in.Y, nil
}

// Backward routes adj to the selected operand.
func (MaxOp) Backward(adj float64, in Inputs) (float64, float64, error) {
	if in.X >= in.Y {
		return adj, 0, nil
	}
	return 0, adj, nil
}

// MinOp selects the smaller operand: out = min(x, y). Ties select x.
type MinOp struct{}

// Name returns "min".
func (MinOp) Name() string { return "min" }

// Arity returns 2.
func (MinOp) Arity() int { return 2 }

// Forward computes min(x, y).
func (MinOp) Forward(in Inputs) (float64, error) {
	if in.X <= in.Y {
		return in.X, nil
	}
	return in.Y, nil
}

// Backward routes adj to the selected operand.
func (MinOp) Backward(adj float64, in Inputs) (float64, float64, error) {
	if in.X <= in.Y {
		return adj, 0, nil
	}
	return 0, adj, nil
}

// MaxConstOp floors the operand at a constant: out = max(x, c).
// Typical use is a call payoff, max(S-K, 0).
type MaxConstOp struct{}

// Name returns "max_const".
func (MaxConstOp) Name() string { return "max_const" }

// Arity returns 1.
func (MaxConstOp) Arity() int { return 1 }

// Forward computes max(x, c).
func (MaxConstOp) Forward(in Inputs) (float64, error) {
	if in.X > in.C {
		return in.X, nil
	}
	return in.C, nil
}

// Backward returns adj when x is above the floor, 0 otherwise.
func (MaxConstOp) Backward(adj float64, in Inputs) (float64, float64, error) {
	if in.X > in.C {
		return adj, 0, nil
	}
	return 0, 0, nil
}

// MinConstOp caps the operand at a constant: out = min(x, c).
type MinConstOp struct{}

// Name returns "min_const".
func (MinConstOp) Name() string { return "min_const" }

// Arity returns 1.
func (MinConstOp) Arity() int { return 1 }

// Forward computes min(x, c).
func (MinConstOp) Forward(in Inputs) (float64, error) {
	if in.X < in.C {
		return in.X, nil
	}
	return in.C, nil
}

// Backward returns adj when x is below the cap, 0 otherwise.
func (MinConstOp) Backward(adj float64, in Inputs) (float64, float64, error) {
	if in.X < in.C {
		return adj, 0, nil
	}
	return 0, 0, nil
}
