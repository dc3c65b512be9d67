package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the enforcement pipeline.
type Metrics struct {
	Outcomes       *prometheus.CounterVec
	StageLatency   *prometheus.HistogramVec
	SigningResults *prometheus.CounterVec
}

// New creates a new Metrics instance with all pipeline metrics registered.
func New() *Metrics {
	return &Metrics{
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "placet_release_outcomes_total",
			Help: "Enforcement outcomes by result, rejection code and classification",
		}, []string{"outcome", "code", "classification"}),

		StageLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "placet_release_stage_duration_seconds",
			Help:    "Duration of pipeline stages",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15},
		}, []string{"stage"}), // stage: "schema", "first_validation", "signing", "second_validation", "delivery"

		SigningResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "placet_release_signing_total",
			Help: "Attachment signing operations by result",
		}, []string{"result"}), // result: "signed", "passthrough", "failed"
	}
}

// IncrementOutcome records one enforcement result.
func (m *Metrics) IncrementOutcome(outcome, code, classification string) {
	if m != nil {
		m.Outcomes.WithLabelValues(outcome, code, classification).Inc()
	}
}

// ObserveStage records one stage duration.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m != nil {
		m.StageLatency.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// IncrementSigning records one attachment signing result.
func (m *Metrics) IncrementSigning(result string) {
	if m != nil {
		m.SigningResults.WithLabelValues(result).Inc()
	}
}
