package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

const (
	defaultAttempts  = 3
	defaultBaseDelay = 2 * time.Second
)

// Dispatcher delivers messages through a Sender with bounded retry.
// Attempt n waits BaseDelay * 2^(n-1) before it runs.
type Dispatcher struct {
	sender    Sender
	logger    *slog.Logger
	attempts  int
	baseDelay time.Duration
	breaker   *CircuitBreaker
	metrics   *Metrics
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithAttempts sets the total number of send attempts, including the first.
func WithAttempts(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.attempts = n
		}
	}
}

// WithBaseDelay sets the delay before the first retry.
func WithBaseDelay(delay time.Duration) Option {
	return func(d *Dispatcher) {
		if delay > 0 {
			d.baseDelay = delay
		}
	}
}

// WithCircuitBreaker guards the sender with cb.
func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(d *Dispatcher) {
		d.breaker = cb
	}
}

// WithMetrics enables delivery metrics.
func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// NewDispatcher wraps sender with retry.
func NewDispatcher(sender Sender, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sender:    sender,
		logger:    logger,
		attempts:  defaultAttempts,
		baseDelay: defaultBaseDelay,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Notify sends msg, retrying transient failures. It returns nil on the first
// successful attempt. Invalid messages fail without retry. Every attempt
// carries the same message id; one is assigned when msg has none.
func (d *Dispatcher) Notify(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if d.breaker != nil && !d.breaker.Allow() {
		d.metrics.incRejected()
		d.logger.WarnContext(ctx, "notification skipped, circuit open",
			"to", msg.To, "subject", msg.Subject)
		return ErrCircuitOpen
	}

	attempt := 0
	operation := func() error {
		attempt++
		d.metrics.incAttempt()
		err := d.sender.Send(ctx, msg)
		if err != nil && errors.Is(err, ErrInvalidMessage) {
			return backoff.Permanent(err)
		}
		return err
	}
	onRetry := func(err error, wait time.Duration) {
		d.logger.WarnContext(ctx, "notification attempt failed, retrying",
			"message_id", msg.ID,
			"to", msg.To,
			"subject", msg.Subject,
			"attempt", attempt,
			"retry_in", wait,
			"error", err,
		)
	}

	err := backoff.RetryNotify(operation, d.policy(ctx), onRetry)
	if err == nil {
		d.metrics.incDelivered()
		if d.breaker != nil {
			d.breaker.RecordSuccess()
		}
		return nil
	}

	if errors.Is(err, ErrInvalidMessage) {
		if d.breaker != nil {
			d.breaker.ReleaseTrial()
		}
		return err
	}

	d.metrics.incFailed()
	if d.breaker != nil && d.breaker.RecordFailure() {
		d.metrics.incCircuitOpen()
		d.logger.ErrorContext(ctx, "notification circuit opened")
	}
	d.logger.ErrorContext(ctx, "notification delivery failed",
		"message_id", msg.ID,
		"to", msg.To,
		"subject", msg.Subject,
		"attempts", attempt,
		"error", err,
	)
	return fmt.Errorf("%w after %d attempts: %w", ErrDeliveryFailed, attempt, err)
}

func (d *Dispatcher) policy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = d.baseDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = d.baseDelay << uint(d.attempts)
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(d.attempts-1)), ctx)
}
