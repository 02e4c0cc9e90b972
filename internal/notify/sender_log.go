package notify

import (
	"context"
	"log/slog"
)

// LogSender writes each message to the log instead of a mail system. It is the
// default driver for local runs and demos.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender constructs a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the message and always succeeds.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "notification sent",
		"message_id", msg.ID,
		"to", msg.To,
		"cc", msg.Cc,
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}
