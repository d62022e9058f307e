// Package ops defines the scalar operations recorded on an autodiff tape.
//
// Each operation implements the Operation interface, which provides:
//   - Forward: evaluates the operation from its operand values
//   - Backward: returns the chain-rule contribution for each operand given
//     the adjoint of the result
//
// Operations are stateless. A tape node stores only the operation Code, its
// operand references and the constant C of scalar-mixed operations; the tape
// hands these back to the operation through Inputs when it sweeps.
//
// Supported operations:
//   - Add, Sub, Mul, Div: binary arithmetic
//   - Neg, AddConst, MulConst, RSubConst, RDivConst, DivConst, PowConst: unary and scalar-mixed
//   - Log, Exp, Sin, Cos, Sqrt, Pow: transcendental
//   - Max, Min, MaxConst, MinConst: kinks used by payoffs
//   - NormCDF: standard normal distribution function
package ops

// Code identifies an operation in a Registry.
// Builtin operations occupy fixed codes, see the constants below.
type Code uint16

// Builtin operation codes. NewRegistry registers them in this order.
const (
	Leaf Code = iota
	Add
	Sub
	Mul
	Div
	Neg
	AddConst
	MulConst
	RSubConst
	RDivConst
	DivConst
	PowConst
	Log
	Exp
	Sin
	Cos
	Sqrt
	Pow
	Max
	Min
	MaxConst
	MinConst
	NormCDF

	numBuiltin
)

// Inputs carries the values an operation needs.
//
// X and Y are the operand values (Y is unused by unary operations), C is the
// constant of scalar-mixed operations and Out is the recorded forward value.
// Out is only meaningful in Backward.
type Inputs struct {
	X, Y, C, Out float64
}

// Operation represents a differentiable scalar operation.
type Operation interface {
	// Name returns a unique, human-readable name ("add", "log", ...).
	Name() string

	// Arity returns the number of node operands: 0 for leaves, 1 or 2 otherwise.
	Arity() int

	// Forward evaluates the operation.
	// Returns a *DomainError when the operands are outside the domain.
	Forward(in Inputs) (float64, error)

	// Backward returns the contributions adj·∂out/∂x and adj·∂out/∂y.
	// dy must be zero for unary operations.
	//
	// Example for Mul:
	//   in: {X: x, Y: y}
	//   returns: adj*y, adj*x
	Backward(adj float64, in Inputs) (dx, dy float64, err error)
}
