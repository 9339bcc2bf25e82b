// Package metrics holds the Prometheus collectors for estimation runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectors are registered on the registerer passed to New. A nil
// *Collectors is valid and records nothing.
//
// Metrics:
//   - scopequote_estimations_total{outcome} - runs by outcome (proceed, stop, degraded)
//   - scopequote_item_failures_total{code} - per-item calculation failures
//   - scopequote_questions_generated_total{priority} - questions by priority
//   - scopequote_estimation_confidence - overall confidence per run
//   - scopequote_estimation_duration_seconds - wall time per run
type Collectors struct {
	Estimations        *prometheus.CounterVec
	ItemFailures       *prometheus.CounterVec
	QuestionsGenerated *prometheus.CounterVec
	Confidence         prometheus.Histogram
	Duration           prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		Estimations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scopequote_estimations_total",
				Help: "Total number of estimation runs by outcome",
			},
			[]string{"outcome"},
		),
		ItemFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scopequote_item_failures_total",
				Help: "Total number of per-item calculation failures by error code",
			},
			[]string{"code"},
		),
		QuestionsGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scopequote_questions_generated_total",
				Help: "Total number of estimator questions generated by priority",
			},
			[]string{"priority"},
		),
		Confidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scopequote_estimation_confidence",
			Help:    "Overall confidence of estimation runs",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 85, 90, 95, 100},
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scopequote_estimation_duration_seconds",
			Help:    "Duration of estimation runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}
	if reg != nil {
		reg.MustRegister(c.Estimations, c.ItemFailures, c.QuestionsGenerated, c.Confidence, c.Duration)
	}
	return c
}

// Outcome labels.
const (
	OutcomeProceed  = "proceed"
	OutcomeStop     = "stop"
	OutcomeDegraded = "degraded"
)

// ObserveRun records one completed run.
func (c *Collectors) ObserveRun(outcome string, confidence float64, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.Estimations.WithLabelValues(outcome).Inc()
	c.Confidence.Observe(confidence)
	c.Duration.Observe(elapsed.Seconds())
}

// ItemFailed records a per-item failure.
func (c *Collectors) ItemFailed(code string) {
	if c == nil {
		return
	}
	if code == "" {
		code = "unknown"
	}
	c.ItemFailures.WithLabelValues(code).Inc()
}

// QuestionsAdded records n questions at a priority.
func (c *Collectors) QuestionsAdded(priority string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.QuestionsGenerated.WithLabelValues(priority).Add(float64(n))
}
