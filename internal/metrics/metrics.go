// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics defines the Prometheus collectors exported by concept-engine.
// A nil *Metrics is valid and records nothing, so components can take one
// optionally.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricSimilarityCalls     = "concept_similarity_upstream_calls_total"
	MetricSimilarityErrors    = "concept_similarity_upstream_errors_total"
	MetricSimilarityCacheHits = "concept_similarity_cache_hits_total"
	MetricSimilarityFallbacks = "concept_similarity_fallbacks_total"
	MetricSelectionDuration   = "concept_selection_duration_seconds"
	MetricDiscoveryRuns       = "concept_discovery_runs_total"
	MetricFusionConflicts     = "concept_fusion_conflicts_total"
)

// Metrics contains the Prometheus collectors for similarity, selection,
// discovery, and fusion. All operations are thread-safe.
type Metrics struct {
	similarityCalls     prometheus.Counter
	similarityErrors    prometheus.Counter
	similarityCacheHits prometheus.Counter
	similarityFallbacks prometheus.Counter
	selectionDuration   prometheus.Histogram
	discoveryRuns       *prometheus.CounterVec
	fusionConflicts     *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		similarityCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricSimilarityCalls,
			Help: "Total number of upstream embedding calls",
		}),
		similarityErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricSimilarityErrors,
			Help: "Total number of failed upstream embedding attempts",
		}),
		similarityCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricSimilarityCacheHits,
			Help: "Total number of similarity values served from cache",
		}),
		similarityFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricSimilarityFallbacks,
			Help: "Total number of similarity values replaced by the neutral fallback",
		}),
		selectionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricSelectionDuration,
			Help:    "Histogram of candidate selection duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		}),
		discoveryRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricDiscoveryRuns,
			Help: "Total number of discovery runs by outcome",
		}, []string{"outcome"}),
		fusionConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricFusionConflicts,
			Help: "Total number of evidence conflicts detected by type",
		}, []string{"type"}),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncSimilarityCall counts one upstream embedding call.
func (m *Metrics) IncSimilarityCall() {
	if m == nil {
		return
	}
	m.similarityCalls.Inc()
}

// IncSimilarityError counts one failed upstream attempt.
func (m *Metrics) IncSimilarityError() {
	if m == nil {
		return
	}
	m.similarityErrors.Inc()
}

// AddCacheHits counts n cache hits.
func (m *Metrics) AddCacheHits(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.similarityCacheHits.Add(float64(n))
}

// AddFallbacks counts n fallback values.
func (m *Metrics) AddFallbacks(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.similarityFallbacks.Add(float64(n))
}

// ObserveSelectionDuration records a selection duration sample.
func (m *Metrics) ObserveSelectionDuration(seconds float64) {
	if m == nil {
		return
	}
	m.selectionDuration.Observe(seconds)
}

// IncDiscoveryRun counts a discovery run with the given outcome
// ("ok", "cached", "invalid", "error").
func (m *Metrics) IncDiscoveryRun(outcome string) {
	if m == nil {
		return
	}
	m.discoveryRuns.WithLabelValues(outcome).Inc()
}

// IncConflict counts one detected conflict of the given type.
func (m *Metrics) IncConflict(conflictType string) {
	if m == nil {
		return
	}
	m.fusionConflicts.WithLabelValues(conflictType).Inc()
}

// Collectors returns all Prometheus collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.similarityCalls,
		m.similarityErrors,
		m.similarityCacheHits,
		m.similarityFallbacks,
		m.selectionDuration,
		m.discoveryRuns,
		m.fusionConflicts,
	}
}
