// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides scalar reverse-mode automatic differentiation.
//
// Operations on Numbers are evaluated eagerly and recorded on a Tape. A
// single backward sweep then yields the derivative of one result with
// respect to every input.
//
// Example:
//
//	import "github.com/born-ml/aad/autodiff"
//
//	func main() {
//	    tape := autodiff.NewTape()
//	    spot, vol := tape.Var(100), tape.Var(0.2)
//
//	    y := spot.Mul(vol.Sqrt()).Log()
//	    if err := y.PropagateToStart(); err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(spot.Adjoint(), vol.Adjoint())
//	}
//
// For Monte-Carlo style workloads, record the model inputs, call SetMark,
// then per path RewindToMark, record the path and PropagateToMark. Finish
// with PropagateMarkToStart.
package autodiff

import (
	"github.com/born-ml/aad/internal/autodiff"
	"github.com/born-ml/aad/internal/autodiff/ops"
)

// Tape records operations and propagates adjoints.
type Tape = autodiff.Tape

// Number is a handle to a node on a Tape.
type Number = autodiff.Number

// Option configures a Tape.
type Option = autodiff.Option

// Observer receives tape activity.
type Observer = autodiff.Observer

// Stats is a snapshot of tape usage.
type Stats = autodiff.Stats

// NodeInfo describes a recorded node.
type NodeInfo = autodiff.NodeInfo

// CSEMode selects common subexpression elimination.
type CSEMode = autodiff.CSEMode

// CSE modes.
const (
	CSEOff        = autodiff.CSEOff
	CSEStructural = autodiff.CSEStructural
	CSEValue      = autodiff.CSEValue
)

// DefaultCapacity is the node store size of a tape created without WithCapacity.
const DefaultCapacity = autodiff.DefaultCapacity

// Registry maps operation codes to forward and adjoint rules.
type Registry = ops.Registry

// Operation is the contract a custom operation implements.
type Operation = ops.Operation

// OpCode identifies a registered operation.
type OpCode = ops.Code

// OpInputs carries operand values to an Operation.
type OpInputs = ops.Inputs

// DomainError describes an operand outside an operation's domain.
type DomainError = ops.DomainError

// Errors returned or panicked with by tapes. Match with errors.Is.
var (
	ErrPoolExhausted     = autodiff.ErrPoolExhausted
	ErrDanglingReference = autodiff.ErrDanglingReference
	ErrForeignTape       = autodiff.ErrForeignTape
	ErrRootBelowMark     = autodiff.ErrRootBelowMark
	ErrIndexOutOfRange   = autodiff.ErrIndexOutOfRange
	ErrDomain            = autodiff.ErrDomain
	ErrUnknownOp         = autodiff.ErrUnknownOp
)

// NewTape creates a tape.
func NewTape(opts ...Option) *Tape {
	return autodiff.NewTape(opts...)
}

// NewRegistry returns a registry holding the builtin operations.
func NewRegistry() *Registry {
	return ops.NewRegistry()
}

// ParseCSEMode parses "off", "structural" or "value".
func ParseCSEMode(s string) (CSEMode, error) {
	return autodiff.ParseCSEMode(s)
}

// WithCapacity sets the number of node slots.
func WithCapacity(n int) Option {
	return autodiff.WithCapacity(n)
}

// WithCSE enables common subexpression elimination.
func WithCSE(mode CSEMode) Option {
	return autodiff.WithCSE(mode)
}

// WithRegistry records against a registry holding custom operations.
func WithRegistry(r *Registry) Option {
	return autodiff.WithRegistry(r)
}

// WithObserver reports tape activity to obs.
func WithObserver(obs Observer) Option {
	return autodiff.WithObserver(obs)
}
