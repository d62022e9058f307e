// Package metrics exports tape activity as Prometheus metrics.
//
// A Collector implements autodiff.Observer. One Collector may observe any
// number of tapes, including tapes owned by different goroutines:
//
//	reg := prometheus.NewRegistry()
//	c, err := metrics.NewCollector(reg)
//	if err != nil {
//	    return err
//	}
//	tape := autodiff.NewTape(autodiff.WithObserver(c))
//
// Node and cache counts are taken when a tape is rewound, so work recorded
// after the last rewind is not counted yet.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/born-ml/aad/internal/autodiff"
)

const namespace = "aad"

const subsystem = "tape"

// Error kinds used as the "kind" label of errors_total.
const (
	KindPoolExhausted = "pool_exhausted"
	KindDomain        = "domain"
	KindDangling      = "dangling_reference"
	KindForeignTape   = "foreign_tape"
	KindOther         = "other"
)

// Collector holds the tape metrics.
type Collector struct {
	// NodesTotal counts nodes released by rewinds.
	NodesTotal prometheus.Counter

	// RewindsTotal counts full and partial rewinds.
	RewindsTotal prometheus.Counter

	// CacheHitsTotal counts CSE cache hits.
	CacheHitsTotal prometheus.Counter

	// TapeNodes observes the tape length at each rewind.
	TapeNodes prometheus.Histogram

	// PropagationsTotal counts successful adjoint sweeps.
	PropagationsTotal prometheus.Counter

	// PropagationSeconds observes sweep duration.
	PropagationSeconds prometheus.Histogram

	// ErrorsTotal counts tape errors.
	// Labels: kind (pool_exhausted, domain, dangling_reference, foreign_tape, other)
	ErrorsTotal *prometheus.CounterVec
}

var _ autodiff.Observer = (*Collector)(nil)

// NewCollector creates the metrics and registers them on reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		NodesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "nodes_total",
			Help:      "Nodes recorded on tapes, counted when released by a rewind",
		}),
		RewindsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rewinds_total",
			Help:      "Full and partial tape rewinds",
		}),
		CacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cse_hits_total",
			Help:      "Operations answered by the common subexpression cache",
		}),
		TapeNodes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "nodes",
			Help:      "Tape length at rewind",
			Buckets:   prometheus.ExponentialBuckets(16, 4, 8),
		}),
		PropagationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "propagations_total",
			Help:      "Successful adjoint sweeps",
		}),
		PropagationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "propagation_seconds",
			Help:      "Adjoint sweep duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 10, 7),
		}),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "errors_total",
			Help:      "Tape errors by kind",
		}, []string{"kind"}),
	}

	for _, col := range []prometheus.Collector{
		c.NodesTotal,
		c.RewindsTotal,
		c.CacheHitsTotal,
		c.TapeNodes,
		c.PropagationsTotal,
		c.PropagationSeconds,
		c.ErrorsTotal,
	} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("metrics: register: %w", err)
		}
	}
	return c, nil
}

// Rewound implements autodiff.Observer.
func (c *Collector) Rewound(s autodiff.Stats) {
	c.RewindsTotal.Inc()
	c.TapeNodes.Observe(float64(s.Nodes))
	// A partial rewind keeps the nodes before the mark; they are counted
	// when a full rewind releases them.
	c.NodesTotal.Add(float64(s.Nodes - s.Mark))
	c.CacheHitsTotal.Add(float64(s.CacheHits))
}

// Propagated implements autodiff.Observer.
func (c *Collector) Propagated(_ int, elapsed time.Duration) {
	c.PropagationsTotal.Inc()
	c.PropagationSeconds.Observe(elapsed.Seconds())
}

// Failed implements autodiff.Observer.
func (c *Collector) Failed(err error) {
	c.ErrorsTotal.WithLabelValues(Kind(err)).Inc()
}

// Kind classifies a tape error for the errors_total label.
func Kind(err error) string {
	switch {
	case errors.Is(err, autodiff.ErrPoolExhausted):
		return KindPoolExhausted
	case errors.Is(err, autodiff.ErrDomain):
		return KindDomain
	case errors.Is(err, autodiff.ErrDanglingReference):
		return KindDangling
	case errors.Is(err, autodiff.ErrForeignTape):
		return KindForeignTape
	default:
		return KindOther
	}
}
