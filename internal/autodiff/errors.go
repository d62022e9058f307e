package autodiff

import (
	"errors"

	"github.com/born-ml/aad/internal/autodiff/ops"
)

// Every message is prefixed with "autodiff: ". Callers match with errors.Is;
// context is added with fmt.Errorf("...: %w", ErrX).
var (
	// ErrPoolExhausted is returned when the node store has no free slot.
	// The in-flight computation is lost; rewind the tape or raise the capacity.
	ErrPoolExhausted = errors.New("autodiff: node store exhausted")

	// ErrDanglingReference indicates a Number whose node was released by a
	// rewind, or a Number that was never bound to a tape.
	ErrDanglingReference = errors.New("autodiff: dangling node reference")

	// ErrForeignTape indicates a Number recorded on a different tape.
	ErrForeignTape = errors.New("autodiff: number belongs to another tape")

	// ErrRootBelowMark indicates PropagateToMark from a node created before the mark.
	ErrRootBelowMark = errors.New("autodiff: root precedes the tape mark")

	// ErrIndexOutOfRange indicates an invalid creation index.
	ErrIndexOutOfRange = errors.New("autodiff: creation index out of range")

	// ErrDomain is matched by operand domain violations and non-finite results.
	ErrDomain = ops.ErrDomain

	// ErrUnknownOp indicates an operation code missing from the tape's registry.
	ErrUnknownOp = ops.ErrUnknownOp
)
