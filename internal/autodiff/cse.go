package autodiff

import (
	"fmt"
	"math"

	"github.com/born-ml/aad/internal/autodiff/ops"
)

// CSEMode selects how a tape deduplicates common subexpressions.
type CSEMode int

const (
	// CSEOff records every operation as a new node.
	CSEOff CSEMode = iota

	// CSEStructural reuses a node when the operation, the operand nodes and
	// the constant are identical. Distinct inputs are never merged, so
	// adjoints are unaffected.
	CSEStructural

	// CSEValue reuses a node when the operation, the operand values and the
	// constant are bit-identical. This is lossy: two different inputs that
	// happen to share a value produce one shared node downstream, and the
	// adjoint of the second input stays zero. Use it only for expressions
	// where equal values imply equal subexpressions.
	CSEValue
)

// String returns the mode name used in configuration files.
func (m CSEMode) String() string {
	switch m {
	case CSEOff:
		return "off"
	case CSEStructural:
		return "structural"
	case CSEValue:
		return "value"
	default:
		return fmt.Sprintf("CSEMode(%d)", int(m))
	}
}

// ParseCSEMode parses "off", "structural" or "value".
func ParseCSEMode(s string) (CSEMode, error) {
	switch s {
	case "", "off":
		return CSEOff, nil
	case "structural":
		return CSEStructural, nil
	case "value":
		return CSEValue, nil
	default:
		return CSEOff, fmt.Errorf("autodiff: unknown CSE mode %q", s)
	}
}

// cseKey is the signature of a recorded operation. In structural mode a and b
// hold operand slot indices, in value mode the operands' float64 bits.
type cseKey struct {
	op   ops.Code
	a, b uint64
	c    uint64
}

type cseEntry struct {
	key cseKey
	seq int32
}

// cseCache maps operation signatures to the node recorded for them.
// Entries are logged in creation order so a partial rewind is a truncation.
type cseCache struct {
	mode    CSEMode
	entries map[cseKey]NodeRef
	log     []cseEntry
	hits    int
}

func newCSECache(mode CSEMode) *cseCache {
	if mode == CSEOff {
		return nil
	}
	return &cseCache{
		mode:    mode,
		entries: make(map[cseKey]NodeRef),
	}
}

// key builds the signature for op applied to the operand slots a, b
// (noRef when absent) with values x, y and constant c.
func (c *cseCache) key(op ops.Code, a, b NodeRef, x, y, k float64) cseKey {
	if c.mode == CSEValue {
		return cseKey{op: op, a: math.Float64bits(x), b: math.Float64bits(y), c: math.Float64bits(k)}
	}
	return cseKey{op: op, a: uint64(uint32(a)), b: uint64(uint32(b)), c: math.Float64bits(k)}
}

func (c *cseCache) lookup(k cseKey) (NodeRef, bool) {
	ref, ok := c.entries[k]
	if ok {
		c.hits++
	}
	return ref, ok
}

func (c *cseCache) record(k cseKey, ref NodeRef, seq int32) {
	c.entries[k] = ref
	c.log = append(c.log, cseEntry{key: k, seq: seq})
}

// truncate forgets entries for nodes created at or after seq.
func (c *cseCache) truncate(seq int32) {
	i := len(c.log)
	for i > 0 && c.log[i-1].seq >= seq {
		i--
		delete(c.entries, c.log[i].key)
	}
	c.log = c.log[:i]
}

func (c *cseCache) len() int {
	return len(c.entries)
}
