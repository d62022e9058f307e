package autodiff

import (
	"fmt"
	"math"
	"time"

	"github.com/born-ml/aad/internal/autodiff/ops"
)

// Tape records scalar operations during the forward pass and propagates
// adjoints during the backward pass using reverse-mode automatic differentiation.
//
// Every node gets a creation index equal to its position on the tape. Operands
// always exist before the nodes that use them, so walking the tape from the
// root down to index 0 visits nodes in reverse topological order; no graph
// sort is needed.
//
// A Tape is not safe for concurrent use. Give each goroutine its own tape and
// rewind it between independent valuations.
//
// Usage:
//
//	tape := NewTape()
//	x := tape.Var(2)
//	y := x.Mul(x).Log()
//	if err := y.PropagateToStart(); err != nil {
//	    return err
//	}
//	fmt.Println(x.Adjoint()) // dy/dx = 2/x = 1
type Tape struct {
	store    *NodeStore
	order    []NodeRef // slots in creation order
	registry *ops.Registry
	cache    *cseCache // nil when CSE is off
	observer Observer

	gen  uint32 // generation stamped on new nodes, bumped by every rewind
	mark int32  // creation index of the mark, 0 when unset

	err           error // first forward failure, sticky until rewind
	errBeforeMark bool  // err survives RewindToMark
}

// NewTape creates a tape with a preallocated node store.
func NewTape(opts ...Option) *Tape {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = ops.NewRegistry()
	}
	return &Tape{
		store:    NewNodeStore(o.capacity),
		order:    make([]NodeRef, 0, min(o.capacity, 1024)),
		registry: o.registry,
		cache:    newCSECache(o.cse),
		observer: o.observer,
		gen:      1,
	}
}

// Var records an input (leaf) node holding v.
// A non-finite v is a domain error.
func (t *Tape) Var(v float64) Number {
	if t.err != nil {
		return t.invalid()
	}
	if !finite(v) {
		t.fail(&ops.DomainError{Op: "leaf", Value: v, Reason: "input is not finite"})
		return t.invalid()
	}
	return t.push(node{op: ops.Leaf, value: v, args: [2]NodeRef{noRef, noRef}})
}

// Vars records one leaf per value.
func (t *Tape) Vars(values ...float64) []Number {
	out := make([]Number, len(values))
	for i, v := range values {
		out[i] = t.Var(v)
	}
	return out
}

// Apply1 records the unary operation code applied to x with constant c.
// It panics if code is not registered or is not unary.
func (t *Tape) Apply1(code ops.Code, x Number, c float64) Number {
	return t.record(code, 1, x, Number{}, c)
}

// Apply2 records the binary operation code applied to x and y with constant c.
// It panics if code is not registered or is not binary.
func (t *Tape) Apply2(code ops.Code, x, y Number, c float64) Number {
	return t.record(code, 2, x, y, c)
}

// record evaluates an operation eagerly and appends its node, or returns the
// node already recorded for the same signature when CSE is on.
func (t *Tape) record(code ops.Code, arity int, x, y Number, c float64) Number {
	op, ok := t.registry.Lookup(code)
	if !ok {
		panic(fmt.Errorf("%w: code %d", ErrUnknownOp, code))
	}
	if op.Arity() != arity {
		panic(fmt.Errorf("%w: %s has arity %d, applied to %d operands", ops.ErrInvalidArity, op.Name(), op.Arity(), arity))
	}
	if t.err != nil {
		return t.invalid()
	}

	args := [2]NodeRef{x.ref, noRef}
	in := ops.Inputs{X: t.mustResolve(x).value, C: c}
	if arity == 2 {
		args[1] = y.ref
		in.Y = t.mustResolve(y).value
	}

	v, err := op.Forward(in)
	if err == nil && !finite(v) {
		err = &ops.DomainError{Op: op.Name(), Value: v, Reason: "result is not finite"}
	}
	if err != nil {
		t.fail(fmt.Errorf("autodiff: recording node %d: %w", len(t.order), err))
		return t.invalid()
	}

	var key cseKey
	if t.cache != nil {
		key = t.cache.key(code, args[0], args[1], in.X, in.Y, c)
		if ref, hit := t.cache.lookup(key); hit {
			return Number{tape: t, ref: ref, gen: t.store.at(ref).gen}
		}
	}

	num := t.push(node{op: code, value: v, aux: c, args: args})
	if t.cache != nil && num.ref != noRef {
		t.cache.record(key, num.ref, int32(len(t.order)-1))
	}
	return num
}

// push allocates a slot for n and appends it to the creation order.
func (t *Tape) push(n node) Number {
	n.seq = int32(len(t.order))
	n.gen = t.gen
	ref, err := t.store.Allocate(n)
	if err != nil {
		t.fail(err)
		return t.invalid()
	}
	t.order = append(t.order, ref)
	return Number{tape: t, ref: ref, gen: t.gen}
}

// invalid returns the Number handed out after a failure.
func (t *Tape) invalid() Number {
	return Number{tape: t, ref: noRef}
}

// fail stores the first forward error.
func (t *Tape) fail(err error) {
	if t.err != nil {
		return
	}
	t.err = err
	t.errBeforeMark = false
	t.report(err)
}

func (t *Tape) report(err error) {
	if t.observer != nil {
		t.observer.Failed(err)
	}
}

// resolve returns the node behind x, or an error if x does not reference a
// live node of this tape.
func (t *Tape) resolve(x Number) (*node, error) {
	switch {
	case x.tape == nil:
		return nil, fmt.Errorf("%w: number is not bound to a tape", ErrDanglingReference)
	case x.tape != t:
		return nil, ErrForeignTape
	case x.ref == noRef:
		return nil, fmt.Errorf("%w: number was produced by a failed operation", ErrDanglingReference)
	case !t.store.contains(x.ref):
		return nil, fmt.Errorf("%w: slot %d", ErrDanglingReference, x.ref)
	}
	n := t.store.at(x.ref)
	if n.gen == 0 || n.gen != x.gen {
		return nil, fmt.Errorf("%w: slot %d was released by a rewind", ErrDanglingReference, x.ref)
	}
	return n, nil
}

// mustResolve is resolve for operator calls, where a bad operand is a
// programming error.
func (t *Tape) mustResolve(x Number) *node {
	n, err := t.resolve(x)
	if err != nil {
		panic(err)
	}
	return n
}

// Propagate computes the adjoint of every node with respect to root.
//
// Algorithm:
//  1. Reset all adjoints to 0 and set root's adjoint to 1
//  2. Walk the tape from root's creation index down to 0
//  3. For each node, add its operation's chain-rule contributions to its operands
//
// Adjoints are only ever added to, so a node used by several downstream nodes
// receives the sum of all contributions.
//
// Returns the sticky forward error if one occurred, ErrDanglingReference or
// ErrForeignTape for a bad root, or a domain error raised during the sweep.
func (t *Tape) Propagate(root Number) error {
	if t.err != nil {
		return t.err
	}
	rn, err := t.resolve(root)
	if err != nil {
		t.report(err)
		return err
	}

	start := time.Now()
	t.ResetAdjoints()
	rn.adjoint = 1
	if err := t.sweep(int(rn.seq), 0); err != nil {
		t.report(err)
		return err
	}
	t.propagated(int(rn.seq)+1, start)
	return nil
}

// PropagateToMark propagates from root down to the mark, leaving nodes
// created before the mark with accumulated adjoints.
//
// Adjoints after the mark are reset; adjoints before it are not. Repeating
// RewindToMark, recording a path and PropagateToMark therefore sums the
// per-path contributions onto the model inputs recorded before the mark.
// Finish with PropagateMarkToStart.
func (t *Tape) PropagateToMark(root Number) error {
	if t.err != nil {
		return t.err
	}
	rn, err := t.resolve(root)
	if err != nil {
		t.report(err)
		return err
	}
	if rn.seq < t.mark {
		err := fmt.Errorf("%w: root %d, mark %d", ErrRootBelowMark, rn.seq, t.mark)
		t.report(err)
		return err
	}

	start := time.Now()
	for _, ref := range t.order[t.mark:] {
		t.store.at(ref).adjoint = 0
	}
	rn.adjoint = 1
	if err := t.sweep(int(rn.seq), int(t.mark)); err != nil {
		t.report(err)
		return err
	}
	t.propagated(int(rn.seq-t.mark)+1, start)
	return nil
}

// PropagateMarkToStart propagates the adjoints accumulated on the nodes
// before the mark down to the start of the tape.
func (t *Tape) PropagateMarkToStart() error {
	if t.err != nil && t.errBeforeMark {
		return t.err
	}
	start := time.Now()
	if err := t.sweep(int(t.mark)-1, 0); err != nil {
		t.report(err)
		return err
	}
	t.propagated(int(t.mark), start)
	return nil
}

// sweep applies adjoint rules from creation index from down to to, inclusive.
func (t *Tape) sweep(from, to int) error {
	for i := from; i >= to; i-- {
		n := t.store.at(t.order[i])
		if n.adjoint == 0 {
			continue
		}
		op, _ := t.registry.Lookup(n.op) // validated when recorded
		arity := op.Arity()
		if arity == 0 {
			continue
		}

		in := ops.Inputs{C: n.aux, Out: n.value}
		x := t.store.at(n.args[0])
		in.X = x.value
		var y *node
		if arity == 2 {
			y = t.store.at(n.args[1])
			in.Y = y.value
		}

		dx, dy, err := op.Backward(n.adjoint, in)
		if err == nil && !(finite(dx) && finite(dy)) {
			err = &ops.DomainError{Op: op.Name(), Value: n.value, Reason: "adjoint contribution is not finite"}
		}
		if err != nil {
			return fmt.Errorf("autodiff: propagating node %d: %w", i, err)
		}

		x.adjoint += dx
		if y != nil {
			y.adjoint += dy
		}
	}
	return nil
}

func (t *Tape) propagated(nodes int, start time.Time) {
	if t.observer != nil {
		t.observer.Propagated(nodes, time.Since(start))
	}
}

// ResetAdjoints sets every adjoint on the tape to 0.
func (t *Tape) ResetAdjoints() {
	for _, ref := range t.order {
		t.store.at(ref).adjoint = 0
	}
}

// SetMark marks the current end of the tape. Nodes recorded so far survive
// RewindToMark.
func (t *Tape) SetMark() {
	t.mark = int32(len(t.order))
	if t.err != nil {
		t.errBeforeMark = true
	}
}

// Mark returns the creation index of the mark, 0 when unset.
func (t *Tape) Mark() int {
	return int(t.mark)
}

// Rewind empties the tape for a new computation. Every Number issued so far
// becomes invalid. The CSE cache, the mark and any stored error are cleared.
func (t *Tape) Rewind() {
	if t.observer != nil {
		s := t.Stats()
		s.Mark = 0
		t.observer.Rewound(s)
	}
	t.release(0)
	t.mark = 0
	t.err = nil
	t.errBeforeMark = false
	if t.cache != nil {
		t.cache.truncate(0)
		t.cache.hits = 0
	}
}

// RewindToMark releases the nodes recorded after the mark. Numbers created
// before the mark stay valid. An error stored after the mark is cleared.
func (t *Tape) RewindToMark() {
	if t.observer != nil {
		t.observer.Rewound(t.Stats())
	}
	t.release(int(t.mark))
	if t.cache != nil {
		t.cache.truncate(t.mark)
		t.cache.hits = 0
	}
	if t.err != nil && !t.errBeforeMark {
		t.err = nil
	}
}

// release returns the slots of nodes from creation index from onwards to the
// store, last created first, and starts a new generation.
func (t *Tape) release(from int) {
	for i := len(t.order) - 1; i >= from; i-- {
		t.store.Deallocate(t.order[i])
	}
	t.order = t.order[:from]
	t.gen++
	if t.gen == 0 {
		t.gen = 1
	}
}

// Err returns the first error recorded since the last rewind.
func (t *Tape) Err() error {
	return t.err
}

// Len returns the number of nodes on the tape.
func (t *Tape) Len() int {
	return len(t.order)
}

// Registry returns the operation registry the tape records against.
func (t *Tape) Registry() *ops.Registry {
	return t.registry
}

// Stats returns a usage snapshot.
func (t *Tape) Stats() Stats {
	s := Stats{
		Nodes:    len(t.order),
		Capacity: t.store.Cap(),
		Mark:     int(t.mark),
	}
	if t.cache != nil {
		s.CacheEntries = t.cache.len()
		s.CacheHits = t.cache.hits
	}
	return s
}

// NodeInfo describes a recorded node.
type NodeInfo struct {
	Index    int    // creation index
	Op       string // operation name
	Operands []int  // creation indices of the operands
	Value    float64
	Adjoint  float64
}

// Node returns the node at creation index i.
func (t *Tape) Node(i int) (NodeInfo, error) {
	if i < 0 || i >= len(t.order) {
		return NodeInfo{}, fmt.Errorf("%w: %d (tape holds %d nodes)", ErrIndexOutOfRange, i, len(t.order))
	}
	n := t.store.at(t.order[i])
	op, _ := t.registry.Lookup(n.op)
	info := NodeInfo{
		Index:   int(n.seq),
		Op:      op.Name(),
		Value:   n.value,
		Adjoint: n.adjoint,
	}
	for _, arg := range n.args[:op.Arity()] {
		info.Operands = append(info.Operands, int(t.store.at(arg).seq))
	}
	return info, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
