// Package metrics collects index synchronization statistics.
//
// The index engine reports every pass through an Observer. Noop discards
// them; Prometheus exports them as counters and a latency histogram.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncSample describes one synchronization pass over one component index.
// Skipped passes (nothing dirty) carry only Component and Skipped.
type SyncSample struct {
	Component  string
	Skipped    bool
	Drained    int
	Reconciled int
	Unchanged  int
	Purged     int
	Elapsed    time.Duration
}

// Observer receives a sample after each synchronization pass. It is called
// from the pass itself, so implementations must be cheap and must not block.
type Observer interface {
	ObserveSync(s SyncSample)
}

// Noop is an Observer that drops everything.
type Noop struct{}

func (Noop) ObserveSync(SyncSample) {}

// Prometheus exports sync samples. Labels are the component type name.
type Prometheus struct {
	passes     *prometheus.CounterVec
	drained    *prometheus.CounterVec
	reconciled *prometheus.CounterVec
	purged     *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// NewPrometheus builds the collectors and registers them with reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecsindex_sync_passes_total",
			Help: "Synchronization passes, by outcome",
		}, []string{"component", "outcome"}),
		drained: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecsindex_dirty_entities_total",
			Help: "Distinct dirty entities drained by synchronization passes",
		}, []string{"component"}),
		reconciled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecsindex_reconciled_entities_total",
			Help: "Entities whose index entry changed during a pass",
		}, []string{"component"}),
		purged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecsindex_purged_entities_total",
			Help: "Entities dropped from the index after removal",
		}, []string{"component"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ecsindex_sync_duration_seconds",
			Help:    "Duration of non-empty synchronization passes",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}, []string{"component"}),
	}
	for _, c := range []prometheus.Collector{p.passes, p.drained, p.reconciled, p.purged, p.latency} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) ObserveSync(s SyncSample) {
	if s.Skipped {
		p.passes.WithLabelValues(s.Component, "skipped").Inc()
		return
	}
	p.passes.WithLabelValues(s.Component, "run").Inc()
	p.drained.WithLabelValues(s.Component).Add(float64(s.Drained))
	p.reconciled.WithLabelValues(s.Component).Add(float64(s.Reconciled))
	p.purged.WithLabelValues(s.Component).Add(float64(s.Purged))
	p.latency.WithLabelValues(s.Component).Observe(s.Elapsed.Seconds())
}
