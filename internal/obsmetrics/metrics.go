// Package obsmetrics is the allocation pipeline's Prometheus
// instrumentation: a struct of promauto-registered collectors built
// once via a New* constructor, with domain-specific record methods
// instead of exposing raw counters to callers.
package obsmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every collector the allocation pipeline reports.
type Metrics struct {
	solveDuration             prometheus.Histogram
	solveStatusTotal          *prometheus.CounterVec
	constraintViolationsTotal *prometheus.CounterVec
	postProcessAdjustments    *prometheus.CounterVec
}

// New registers and returns the metric set. Constructed once per
// process; callers that don't want Prometheus at all (tests, the bare
// CLI) simply never construct or reference it.
func New() *Metrics {
	return &Metrics{
		solveDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "solve_duration_seconds",
			Help:    "Wall-clock duration of a single allocation solve.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		solveStatusTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "solve_status_total",
			Help: "Count of solves by terminal status.",
		}, []string{"status"}),
		constraintViolationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "constraint_violations_total",
			Help: "Count of constraint violations recorded during validation, by family.",
		}, []string{"family"}),
		postProcessAdjustments: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "post_process_adjustments_total",
			Help: "Count of cell adjustments made by a post-processing pass.",
		}, []string{"pass"}),
	}
}

// RecordSolve observes one solve's duration and increments its status
// counter.
func (m *Metrics) RecordSolve(status string, durationSeconds float64) {
	m.solveDuration.Observe(durationSeconds)
	m.solveStatusTotal.WithLabelValues(status).Inc()
}

// RecordViolation increments the violation counter for one constraint
// family.
func (m *Metrics) RecordViolation(family string) {
	m.constraintViolationsTotal.WithLabelValues(family).Inc()
}

// RecordAdjustment increments the post-processing adjustment counter
// for one pass ("coalesce" or "absorb").
func (m *Metrics) RecordAdjustment(pass string) {
	m.postProcessAdjustments.WithLabelValues(pass).Inc()
}
