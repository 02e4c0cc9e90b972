package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts ledger writes. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Appended       *prometheus.CounterVec
	AppendFailures prometheus.Counter
}

// NewMetrics registers ledger metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Appended: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_ledger_appended_total",
			Help: "Ledger entries appended by status",
		}, []string{"status"}),
		AppendFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "guardian_ledger_append_failures_total",
			Help: "Ledger appends that failed and left no entry",
		}),
	}
}

// IncAppended records one appended entry.
func (m *Metrics) IncAppended(status Status) {
	if m != nil {
		m.Appended.WithLabelValues(string(status)).Inc()
	}
}

// IncAppendFailures records a failed append.
func (m *Metrics) IncAppendFailures() {
	if m != nil {
		m.AppendFailures.Inc()
	}
}
