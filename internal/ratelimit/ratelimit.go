// Package ratelimit caps how many API requests one caller may make in a
// sliding window. Stores are in-memory for a single process or Redis when
// several replicas share the budget.
package ratelimit

import (
	"context"
	"time"
)

// Result describes one admission decision. RetryAfter is only set on a
// rejection and is the wait until the oldest counted request leaves the window.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Store counts requests per key over a sliding window.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

// Limiter applies one limit and window to every key.
type Limiter struct {
	store   Store
	limit   int
	window  time.Duration
	metrics *Metrics
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithMetrics records admission decisions.
func WithMetrics(m *Metrics) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

// NewLimiter allows limit requests per key in any window-long interval.
func NewLimiter(store Store, limit int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{store: store, limit: limit, window: window}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check counts one request for key.
func (l *Limiter) Check(ctx context.Context, key string) (*Result, error) {
	res, err := l.store.Allow(ctx, key, l.limit, l.window)
	if err != nil {
		l.metrics.incErrors()
		return nil, err
	}
	l.metrics.incDecision(res.Allowed)
	return res, nil
}
