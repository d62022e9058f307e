package autodiff

import (
	"fmt"

	"github.com/born-ml/aad/internal/autodiff/ops"
)

// DefaultCapacity is the node store size used when no capacity is configured.
const DefaultCapacity = 1 << 16

// NodeRef is the index of a slot in a NodeStore.
type NodeRef int32

// noRef marks an absent operand or an invalid Number.
const noRef NodeRef = -1

// node is one recorded operation result. Nodes are stored by value and
// reference their operands by slot index.
type node struct {
	value   float64
	adjoint float64
	aux     float64 // constant of scalar-mixed operations
	args    [2]NodeRef
	seq     int32  // creation index on the owning tape
	gen     uint32 // tape generation at allocation, 0 when free
	op      ops.Code
}

// NodeStore is a fixed-capacity block of node slots with an index free list.
//
// Allocate and Deallocate are O(1) and never allocate memory. Slots are
// handed out lowest index first on a fresh store; after a tape rewinds,
// the slots come back in the order they were first handed out.
type NodeStore struct {
	slots []node
	free  []NodeRef // stack of available slots, top at the end
}

// NewNodeStore preallocates capacity slots.
// It panics if capacity is not positive.
func NewNodeStore(capacity int) *NodeStore {
	if capacity <= 0 {
		panic(fmt.Sprintf("autodiff: node store capacity must be positive, got %d", capacity))
	}
	s := &NodeStore{
		slots: make([]node, capacity),
		free:  make([]NodeRef, capacity),
	}
	for i := range s.free {
		s.free[i] = NodeRef(capacity - 1 - i)
	}
	return s
}

// Allocate pops a free slot and initializes it with n and a zero adjoint.
func (s *NodeStore) Allocate(n node) (NodeRef, error) {
	top := len(s.free) - 1
	if top < 0 {
		return noRef, fmt.Errorf("%w (capacity %d)", ErrPoolExhausted, len(s.slots))
	}
	ref := s.free[top]
	s.free = s.free[:top]

	n.adjoint = 0
	s.slots[ref] = n
	return ref, nil
}

// Deallocate returns a slot to the free list.
// Only tape rewinds release slots; individual nodes are never freed.
func (s *NodeStore) Deallocate(ref NodeRef) {
	s.slots[ref].gen = 0
	s.free = append(s.free, ref)
}

// at returns the slot for ref without validation.
func (s *NodeStore) at(ref NodeRef) *node {
	return &s.slots[ref]
}

// contains reports whether ref addresses a slot of this store.
func (s *NodeStore) contains(ref NodeRef) bool {
	return ref >= 0 && int(ref) < len(s.slots)
}

// Cap returns the total number of slots.
func (s *NodeStore) Cap() int {
	return len(s.slots)
}

// Len returns the number of slots in use.
func (s *NodeStore) Len() int {
	return len(s.slots) - len(s.free)
}

// Available returns the number of free slots.
func (s *NodeStore) Available() int {
	return len(s.free)
}
