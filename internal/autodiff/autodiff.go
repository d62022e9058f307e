// Package autodiff implements scalar reverse-mode automatic adjoint
// differentiation on an explicit tape.
//
// Architecture:
//   - NodeStore: fixed-capacity node slots with an index free list
//   - Tape: owns the nodes of one computation in creation order and drives
//     the backward sweep
//   - ops.Registry: forward formula and adjoint rule per operation code
//   - CSE cache: optional reuse of nodes for identical subexpressions
//   - Number: the handle client code computes with
//
// Usage:
//
//	tape := autodiff.NewTape()
//	x := tape.Vars(1, 2, 3, 4, 5)
//
//	y1 := x[2].Mul(x[0].MulScalar(5).Add(x[1]))
//	y2 := y1.Log()
//	y := y1.Add(x[3].Mul(y2)).Mul(y1.Add(y2))
//
//	if err := y.PropagateToStart(); err != nil {
//	    return err
//	}
//	fmt.Println(x[0].Adjoint()) // ∂y/∂x0 ≈ 950.736
//
// Operators evaluate eagerly. The first failure (domain violation, node store
// exhaustion) is stored on the tape; later operators return an invalid Number
// without recording anything and the propagation entry points return the
// stored error. Mixing tapes or using a Number after its tape was rewound
// panics.
package autodiff

import (
	"fmt"
	"math"

	"github.com/born-ml/aad/internal/autodiff/ops"
)

// Number is a handle to a node on a Tape.
//
// Numbers are small values: copying one does not copy the computation, and
// many Numbers may refer to the same node. A Number stays valid until its
// tape is rewound past its node.
type Number struct {
	tape *Tape
	ref  NodeRef
	gen  uint32
}

// node returns the referenced node, panicking on an invalid handle.
func (x Number) node() *node {
	if x.tape == nil {
		panic(fmt.Errorf("%w: number is not bound to a tape", ErrDanglingReference))
	}
	return x.tape.mustResolve(x)
}

// mustTape returns the tape x records on.
func (x Number) mustTape() *Tape {
	if x.tape == nil {
		panic(fmt.Errorf("%w: number is not bound to a tape", ErrDanglingReference))
	}
	return x.tape
}

// failed reports whether x is the result of a failed operation.
func (x Number) failed() bool {
	return x.tape != nil && x.ref == noRef
}

// Tape returns the tape x was recorded on.
func (x Number) Tape() *Tape {
	return x.tape
}

// Valid reports whether x references a live node.
func (x Number) Valid() bool {
	if x.tape == nil {
		return false
	}
	_, err := x.tape.resolve(x)
	return err == nil
}

// Value returns the forward value, or NaN if x came from a failed operation.
func (x Number) Value() float64 {
	if x.failed() {
		return math.NaN()
	}
	return x.node().value
}

// Adjoint returns the accumulated adjoint, or NaN if x came from a failed operation.
func (x Number) Adjoint() float64 {
	if x.failed() {
		return math.NaN()
	}
	return x.node().adjoint
}

// SetAdjoint overwrites the adjoint, e.g. to seed a custom sweep.
func (x Number) SetAdjoint(a float64) {
	x.node().adjoint = a
}

// AddAdjoint adds a to the adjoint.
func (x Number) AddAdjoint(a float64) {
	x.node().adjoint += a
}

// Index returns the creation index of the node.
func (x Number) Index() int {
	return int(x.node().seq)
}

// String implements fmt.Stringer.
func (x Number) String() string {
	if !x.Valid() {
		return "Number(invalid)"
	}
	return fmt.Sprintf("Number(%g)", x.Value())
}

// PropagateToStart propagates adjoints from x to every node before it.
// Afterwards each input's Adjoint is the partial derivative of x.
func (x Number) PropagateToStart() error {
	if x.tape == nil {
		return fmt.Errorf("%w: number is not bound to a tape", ErrDanglingReference)
	}
	return x.tape.Propagate(x)
}

// PropagateToMark propagates adjoints from x down to the tape mark.
// See Tape.PropagateToMark.
func (x Number) PropagateToMark() error {
	if x.tape == nil {
		return fmt.Errorf("%w: number is not bound to a tape", ErrDanglingReference)
	}
	return x.tape.PropagateToMark(x)
}

// Add returns x + y.
func (x Number) Add(y Number) Number { return x.mustTape().Apply2(ops.Add, x, y, 0) }

// Sub returns x - y.
func (x Number) Sub(y Number) Number { return x.mustTape().Apply2(ops.Sub, x, y, 0) }

// Mul returns x * y.
func (x Number) Mul(y Number) Number { return x.mustTape().Apply2(ops.Mul, x, y, 0) }

// Div returns x / y. A zero divisor is a domain error.
func (x Number) Div(y Number) Number { return x.mustTape().Apply2(ops.Div, x, y, 0) }

// Pow returns x^y. A negative base is a domain error.
func (x Number) Pow(y Number) Number { return x.mustTape().Apply2(ops.Pow, x, y, 0) }

// Max returns max(x, y); the adjoint flows to the selected operand.
func (x Number) Max(y Number) Number { return x.mustTape().Apply2(ops.Max, x, y, 0) }

// Min returns min(x, y); the adjoint flows to the selected operand.
func (x Number) Min(y Number) Number { return x.mustTape().Apply2(ops.Min, x, y, 0) }

// AddScalar returns x + c.
func (x Number) AddScalar(c float64) Number { return x.mustTape().Apply1(ops.AddConst, x, c) }

// SubScalar returns x - c.
func (x Number) SubScalar(c float64) Number { return x.mustTape().Apply1(ops.AddConst, x, -c) }

// MulScalar returns c * x.
func (x Number) MulScalar(c float64) Number { return x.mustTape().Apply1(ops.MulConst, x, c) }

// DivScalar returns x / c. A zero c is a domain error.
func (x Number) DivScalar(c float64) Number { return x.mustTape().Apply1(ops.DivConst, x, c) }

// RSub returns c - x.
func (x Number) RSub(c float64) Number { return x.mustTape().Apply1(ops.RSubConst, x, c) }

// RDiv returns c / x. A zero x is a domain error.
func (x Number) RDiv(c float64) Number { return x.mustTape().Apply1(ops.RDivConst, x, c) }

// PowScalar returns x^c.
func (x Number) PowScalar(c float64) Number { return x.mustTape().Apply1(ops.PowConst, x, c) }

// MaxScalar returns max(x, c).
func (x Number) MaxScalar(c float64) Number { return x.mustTape().Apply1(ops.MaxConst, x, c) }

// MinScalar returns min(x, c).
func (x Number) MinScalar(c float64) Number { return x.mustTape().Apply1(ops.MinConst, x, c) }

// Neg returns -x.
func (x Number) Neg() Number { return x.mustTape().Apply1(ops.Neg, x, 0) }

// Log returns ln(x). A non-positive x is a domain error.
func (x Number) Log() Number { return x.mustTape().Apply1(ops.Log, x, 0) }

// Exp returns exp(x).
func (x Number) Exp() Number { return x.mustTape().Apply1(ops.Exp, x, 0) }

// Sin returns sin(x).
func (x Number) Sin() Number { return x.mustTape().Apply1(ops.Sin, x, 0) }

// Cos returns cos(x).
func (x Number) Cos() Number { return x.mustTape().Apply1(ops.Cos, x, 0) }

// Sqrt returns sqrt(x). A negative x is a domain error.
func (x Number) Sqrt() Number { return x.mustTape().Apply1(ops.Sqrt, x, 0) }

// NormCDF returns the standard normal distribution function Φ(x).
func (x Number) NormCDF() Number { return x.mustTape().Apply1(ops.NormCDF, x, 0) }

// Comparisons read forward values only and record nothing.

// Less reports x < y.
func (x Number) Less(y Number) bool { return x.Value() < y.Value() }

// LessEq reports x <= y.
func (x Number) LessEq(y Number) bool { return x.Value() <= y.Value() }

// Greater reports x > y.
func (x Number) Greater(y Number) bool { return x.Value() > y.Value() }

// GreaterEq reports x >= y.
func (x Number) GreaterEq(y Number) bool { return x.Value() >= y.Value() }

// Equal reports x == y by value.
func (x Number) Equal(y Number) bool { return x.Value() == y.Value() }

// LessScalar reports x < c.
func (x Number) LessScalar(c float64) bool { return x.Value() < c }

// GreaterScalar reports x > c.
func (x Number) GreaterScalar(c float64) bool { return x.Value() > c }
