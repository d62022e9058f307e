package autodiff

import (
	"fmt"
	"time"

	"github.com/born-ml/aad/internal/autodiff/ops"
)

// Option configures a Tape.
type Option func(*options)

type options struct {
	capacity int
	cse      CSEMode
	registry *ops.Registry
	observer Observer
}

func defaultOptions() options {
	return options{
		capacity: DefaultCapacity,
		cse:      CSEOff,
	}
}

// WithCapacity sets the number of node slots. It panics if n is not positive.
func WithCapacity(n int) Option {
	if n <= 0 {
		panic(fmt.Sprintf("autodiff: WithCapacity requires n > 0, got %d", n))
	}
	return func(o *options) { o.capacity = n }
}

// WithCSE enables common subexpression elimination.
func WithCSE(mode CSEMode) Option {
	return func(o *options) { o.cse = mode }
}

// WithRegistry records operations against r instead of a fresh builtin
// registry. Use it to make custom operations available to Apply1 and Apply2.
func WithRegistry(r *ops.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithObserver reports tape activity to obs.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// Observer receives tape activity. Calls happen on the goroutine that owns
// the tape; implementations shared between tapes must be concurrency safe.
type Observer interface {
	// Rewound is called before a rewind releases nodes. s.Mark is the
	// creation index the tape is rewound to.
	Rewound(s Stats)
	// Propagated is called after a successful adjoint sweep over nodes nodes.
	Propagated(nodes int, elapsed time.Duration)
	// Failed is called once per error stored on the tape or returned by a sweep.
	Failed(err error)
}

// Stats is a snapshot of tape usage.
type Stats struct {
	Nodes        int // nodes on the tape
	Capacity     int // node store capacity
	Mark         int // creation index of the mark, 0 when unset
	CacheEntries int
	CacheHits    int // hits since the last rewind
}
