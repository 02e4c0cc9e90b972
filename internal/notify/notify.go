// Package notify is the outbound notification boundary.
//
// A Sender delivers one message and reports success or failure; nothing more is
// promised. The Dispatcher wraps a Sender with bounded exponential retry and a
// circuit breaker. It never touches the ledger, so retrying a send cannot
// record a decision twice.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrDeliveryFailed is returned once the retry budget is spent.
	ErrDeliveryFailed = errors.New("notification delivery failed")
	// ErrCircuitOpen is returned without attempting delivery while the breaker is open.
	ErrCircuitOpen = errors.New("notification circuit open")
	// ErrInvalidMessage marks messages no retry can fix.
	ErrInvalidMessage = errors.New("invalid notification message")
)

// Message is one email-shaped notification. Cc is optional. ID identifies the
// notification across delivery attempts so the relay can drop replays.
type Message struct {
	ID      string
	To      string
	Cc      string
	Subject string
	Body    string
}

// MessageID is the notification id for the ledger entry it announces.
func MessageID(requestID int64) string {
	return "guardian-" + strconv.FormatInt(requestID, 10)
}

// Validate rejects messages without a recipient or subject.
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return fmt.Errorf("%w: missing recipient", ErrInvalidMessage)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("%w: missing subject", ErrInvalidMessage)
	}
	return nil
}

// Sender delivers a single message. Any returned error is treated as
// transient unless it wraps ErrInvalidMessage.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg Message) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}
