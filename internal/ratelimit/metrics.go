package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts admission decisions. A nil *Metrics records nothing.
type Metrics struct {
	Decisions   *prometheus.CounterVec
	StoreErrors prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_ratelimit_decisions_total",
			Help: "API requests admitted or rejected by the per-caller limit",
		}, []string{"result"}),
		StoreErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "guardian_ratelimit_store_errors_total",
			Help: "Rate limit checks that failed open because the store errored",
		}),
	}
}

func (m *Metrics) incDecision(allowed bool) {
	if m == nil {
		return
	}
	result := "rejected"
	if allowed {
		result = "allowed"
	}
	m.Decisions.WithLabelValues(result).Inc()
}

func (m *Metrics) incErrors() {
	if m != nil {
		m.StoreErrors.Inc()
	}
}
