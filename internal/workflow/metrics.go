package workflow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the workflow engine.
type Metrics struct {
	// Decisions by intent and outcome
	Decisions *prometheus.CounterVec

	// Full Decide latency including notification
	DecideLatency prometheus.Histogram

	// Time spent waiting for the per-key lock
	LockWait prometheus.Histogram

	// Decisions recorded whose notification was not delivered
	DeliveryDegraded *prometheus.CounterVec

	// Calls that ended in an infrastructure error, by error code
	Failures *prometheus.CounterVec
}

// NewMetrics registers workflow metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_workflow_decisions_total",
			Help: "Total decisions by intent and outcome",
		}, []string{"intent", "outcome"}),

		DecideLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "guardian_workflow_decide_duration_seconds",
			Help:    "Duration of a full decision including notification",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		LockWait: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "guardian_workflow_lock_wait_seconds",
			Help:    "Time spent acquiring the per-request lock",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),

		DeliveryDegraded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_workflow_delivery_degraded_total",
			Help: "Recorded decisions whose notification could not be delivered",
		}, []string{"outcome"}),

		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_workflow_failures_total",
			Help: "Decide calls that failed with an error, by error code",
		}, []string{"code"}),
	}
}

// IncrementDecision records a business outcome.
func (m *Metrics) IncrementDecision(intent Intent, outcome Outcome) {
	if m != nil {
		m.Decisions.WithLabelValues(string(intent), string(outcome)).Inc()
	}
}

// ObserveDecideLatency records the total decision duration.
func (m *Metrics) ObserveDecideLatency(d time.Duration) {
	if m != nil {
		m.DecideLatency.Observe(d.Seconds())
	}
}

// ObserveLockWait records how long the per-key lock took to acquire.
func (m *Metrics) ObserveLockWait(d time.Duration) {
	if m != nil {
		m.LockWait.Observe(d.Seconds())
	}
}

// IncrementDeliveryDegraded records a notification lost after retries.
func (m *Metrics) IncrementDeliveryDegraded(outcome Outcome) {
	if m != nil {
		m.DeliveryDegraded.WithLabelValues(string(outcome)).Inc()
	}
}

// IncrementFailure records a failed call by error code.
func (m *Metrics) IncrementFailure(code string) {
	if m != nil {
		m.Failures.WithLabelValues(code).Inc()
	}
}
