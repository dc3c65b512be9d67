package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the decision module.
type Metrics struct {
	Decisions     *prometheus.CounterVec
	DecideLatency prometheus.Histogram
}

// New creates a new Metrics instance with all decision metrics registered.
func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "placet_decision_outcomes_total",
			Help: "Policy decisions by outcome and denial code",
		}, []string{"outcome", "code"}),

		DecideLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "placet_decision_duration_seconds",
			Help:    "Duration of policy evaluation including the store read",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
	}
}

// ObserveDecision records one evaluation outcome.
func (m *Metrics) ObserveDecision(allowed bool, code string, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "deny"
	if allowed {
		outcome = "allow"
		code = ""
	}
	m.Decisions.WithLabelValues(outcome, code).Inc()
	m.DecideLatency.Observe(d.Seconds())
}
