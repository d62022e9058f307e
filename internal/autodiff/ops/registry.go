package ops

import "fmt"

// Registry maps operation codes to implementations.
//
// Lookups are slice indexed so the tape sweep dispatches in O(1).
// A Registry is not safe for concurrent Register calls; register custom
// operations before handing the registry to tapes.
type Registry struct {
	ops    []Operation
	byName map[string]Code
}

// NewRegistry returns a registry holding the builtin operations at their
// fixed codes.
func NewRegistry() *Registry {
	r := &Registry{
		ops:    make([]Operation, 0, numBuiltin+8),
		byName: make(map[string]Code, numBuiltin+8),
	}
	for _, op := range builtins() {
		if _, err := r.Register(op); err != nil {
			panic(err) // builtin names are unique
		}
	}
	return r
}

// builtins lists the builtin operations in Code order.
func builtins() []Operation {
	return []Operation{
		Leaf:      LeafOp{},
		Add:       AddOp{},
		Sub:       SubOp{},
		Mul:       MulOp{},
		Div:       DivOp{},
		Neg:       NegOp{},
		AddConst:  AddConstOp{},
		MulConst:  MulConstOp{},
		RSubConst: RSubConstOp{},
		RDivConst: RDivConstOp{},
		DivConst:  DivConstOp{},
		PowConst:  PowConstOp{},
		Log:       LogOp{},
		Exp:       ExpOp{},
		Sin:       SinOp{},
		Cos:       CosOp{},
		Sqrt:      SqrtOp{},
		Pow:       PowOp{},
		Max:       MaxOp{},
		Min:       MinOp{},
		MaxConst:  MaxConstOp{},
		MinConst:  MinConstOp{},
		NormCDF:   NormCDFOp{},
	}
}

// Register adds op and returns its code.
// Only the builtin Leaf may have arity 0.
func (r *Registry) Register(op Operation) (Code, error) {
	name := op.Name()
	if _, ok := r.byName[name]; ok {
		return 0, fmt.Errorf("%w: %q", ErrDuplicateOp, name)
	}
	arity := op.Arity()
	if (arity < 1 || arity > 2) && !(len(r.ops) == int(Leaf) && arity == 0) {
		return 0, fmt.Errorf("%w: %q has arity %d", ErrInvalidArity, name, arity)
	}
	code := Code(len(r.ops))
	r.ops = append(r.ops, op)
	r.byName[name] = code
	return code, nil
}

// Lookup returns the operation registered at code.
func (r *Registry) Lookup(code Code) (Operation, bool) {
	if int(code) >= len(r.ops) {
		return nil, false
	}
	return r.ops[code], true
}

// ByName returns the code registered under name.
func (r *Registry) ByName(name string) (Code, bool) {
	code, ok := r.byName[name]
	return code, ok
}

// Len returns the number of registered operations.
func (r *Registry) Len() int {
	return len(r.ops)
}
