package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks notification delivery outcomes.
type Metrics struct {
	Attempts     prometheus.Counter
	Delivered    prometheus.Counter
	Failed       prometheus.Counter
	CircuitOpens prometheus.Counter
	Rejected     prometheus.Counter
}

// NewMetrics registers notification metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Attempts: f.NewCounter(prometheus.CounterOpts{
			Name: "guardian_notify_attempts_total",
			Help: "Total send attempts, including retries",
		}),
		Delivered: f.NewCounter(prometheus.CounterOpts{
			Name: "guardian_notify_delivered_total",
			Help: "Total notifications delivered",
		}),
		Failed: f.NewCounter(prometheus.CounterOpts{
			Name: "guardian_notify_failed_total",
			Help: "Total notifications abandoned after exhausting retries",
		}),
		CircuitOpens: f.NewCounter(prometheus.CounterOpts{
			Name: "guardian_notify_circuit_opens_total",
			Help: "Number of times the notification circuit opened",
		}),
		Rejected: f.NewCounter(prometheus.CounterOpts{
			Name: "guardian_notify_circuit_rejected_total",
			Help: "Notifications refused because the circuit was open",
		}),
	}
}

func (m *Metrics) incAttempt() {
	if m == nil {
		return
	}
	m.Attempts.Inc()
}

func (m *Metrics) incDelivered() {
	if m == nil {
		return
	}
	m.Delivered.Inc()
}

func (m *Metrics) incFailed() {
	if m == nil {
		return
	}
	m.Failed.Inc()
}

func (m *Metrics) incCircuitOpen() {
	if m == nil {
		return
	}
	m.CircuitOpens.Inc()
}

func (m *Metrics) incRejected() {
	if m == nil {
		return
	}
	m.Rejected.Inc()
}
