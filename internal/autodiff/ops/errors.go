package ops

import (
	"errors"
	"fmt"
)

var (
	// ErrDomain is matched by every *DomainError.
	ErrDomain = errors.New("ops: argument outside of domain")

	// ErrUnknownOp indicates a Code that is not registered.
	ErrUnknownOp = errors.New("ops: unknown operation")

	// ErrDuplicateOp indicates an attempt to register a name twice.
	ErrDuplicateOp = errors.New("ops: operation already registered")

	// ErrInvalidArity indicates an operation whose Arity is not 1 or 2.
	ErrInvalidArity = errors.New("ops: invalid arity")
)

// DomainError reports an operand outside the domain of an operation,
// or a forward value or adjoint contribution that is not finite.
type DomainError struct {
	Op     string  // operation name
	Value  float64 // offending operand or result
	Reason string
}

// Error implements error.
func (e *DomainError) Error() string {
	return fmt.Sprintf("ops: %s: %s (value %g)", e.Op, e.Reason, e.Value)
}

// Is reports whether target is ErrDomain.
func (e *DomainError) Is(target error) bool {
	return target == ErrDomain
}

func domainError(op string, v float64, reason string) *DomainError {
	return &DomainError{Op: op, Value: v, Reason: reason}
}
