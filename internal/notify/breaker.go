package notify

import (
	"sync"
	"time"
)

// CircuitBreaker stops the dispatcher from hammering a failing transport.
// After threshold consecutive failed dispatches it opens for cooldown. Once the
// cooldown passes, exactly one dispatch is admitted as a trial; everyone else
// is rejected until the trial reports back.
type CircuitBreaker struct {
	mu sync.Mutex

	threshold int
	cooldown  time.Duration
	clock     func() time.Time

	failures      int
	openUntil     time.Time
	isOpen        bool
	trialInFlight bool
}

// NewCircuitBreaker creates a circuit breaker.
// threshold: consecutive failures to open the circuit
// cooldown: how long to stay open before a trial dispatch
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &CircuitBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		clock:     time.Now,
	}
}

// Allow reports whether a dispatch may proceed. While open it admits a single
// trial after the cooldown.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !cb.isOpen {
		return true
	}
	if cb.trialInFlight || !cb.clock().After(cb.openUntil) {
		return false
	}
	cb.trialInFlight = true
	return true
}

// RecordSuccess closes the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.isOpen = false
	cb.trialInFlight = false
}

// RecordFailure counts a failure and reports whether the circuit just opened.
// A failed trial reopens it for another cooldown.
func (cb *CircuitBreaker) RecordFailure() (opened bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.trialInFlight {
		cb.trialInFlight = false
		cb.openUntil = cb.clock().Add(cb.cooldown)
		return true
	}

	cb.failures++
	if cb.failures >= cb.threshold && !cb.isOpen {
		cb.isOpen = true
		cb.openUntil = cb.clock().Add(cb.cooldown)
		return true
	}
	return false
}

// ReleaseTrial gives up an admitted trial that ended without a verdict on the
// transport, so the next dispatch becomes the trial.
func (cb *CircuitBreaker) ReleaseTrial() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.trialInFlight = false
}

// IsOpen returns true while the circuit rejects dispatches, including while a
// trial is in flight.
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.isOpen
}
