package autodiff

import (
	"errors"
	"testing"

	"github.com/born-ml/aad/internal/autodiff/ops"
)

// TestNodeStore_AllocateInOrder tests that a fresh store hands out slots lowest first.
func TestNodeStore_AllocateInOrder(t *testing.T) {
	s := NewNodeStore(4)

	for want := NodeRef(0); want < 4; want++ {
		ref, err := s.Allocate(node{op: ops.Leaf, value: float64(want)})
		if err != nil {
			t.Fatalf("Allocate() error = %v", err)
		}
		if ref != want {
			t.Errorf("Allocate() = %d, want %d", ref, want)
		}
	}
	if s.Len() != 4 || s.Available() != 0 || s.Cap() != 4 {
		t.Errorf("Len/Available/Cap = %d/%d/%d, want 4/0/4", s.Len(), s.Available(), s.Cap())
	}
}

// TestNodeStore_Exhaustion tests that a full store reports ErrPoolExhausted.
func TestNodeStore_Exhaustion(t *testing.T) {
	s := NewNodeStore(2)
	for i := 0; i < 2; i++ {
		if _, err := s.Allocate(node{}); err != nil {
			t.Fatalf("Allocate() error = %v", err)
		}
	}

	ref, err := s.Allocate(node{})
	if !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("Allocate() error = %v, want ErrPoolExhausted", err)
	}
	if ref != noRef {
		t.Errorf("Allocate() ref = %d, want noRef", ref)
	}
}

// TestNodeStore_DeallocateReuses tests LIFO reuse and adjoint zeroing.
func TestNodeStore_DeallocateReuses(t *testing.T) {
	s := NewNodeStore(3)
	a, _ := s.Allocate(node{gen: 1})
	b, _ := s.Allocate(node{gen: 1})

	s.at(b).adjoint = 42
	s.Deallocate(b)
	if s.at(b).gen != 0 {
		t.Errorf("released slot gen = %d, want 0", s.at(b).gen)
	}
	s.Deallocate(a)

	first, _ := s.Allocate(node{adjoint: 5})
	second, _ := s.Allocate(node{})
	if first != a || second != b {
		t.Errorf("reuse order = (%d, %d), want (%d, %d)", first, second, a, b)
	}
	if s.at(first).adjoint != 0 || s.at(second).adjoint != 0 {
		t.Error("Allocate() must zero the adjoint")
	}
}

// TestNodeStore_InvalidCapacity tests the constructor guard.
func TestNodeStore_InvalidCapacity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewNodeStore(0) did not panic")
		}
	}()
	NewNodeStore(0)
}

// TestNodeStore_Contains tests slot range checks.
func TestNodeStore_Contains(t *testing.T) {
	s := NewNodeStore(2)
	for ref, want := range map[NodeRef]bool{-1: false, 0: true, 1: true, 2: false} {
		if got := s.contains(ref); got != want {
			t.Errorf("contains(%d) = %v, want %v", ref, got, want)
		}
	}
}

func BenchmarkNodeStore_AllocateRelease(b *testing.B) {
	s := NewNodeStore(1024)
	refs := make([]NodeRef, 0, 1024)
	for i := 0; i < b.N; i++ {
		for j := 0; j < 1024; j++ {
			ref, _ := s.Allocate(node{gen: 1})
			refs = append(refs, ref)
		}
		for j := len(refs) - 1; j >= 0; j-- {
			s.Deallocate(refs[j])
		}
		refs = refs[:0]
	}
}
