package notifications

import (
	"context"
	"errors"
	"log/slog"
)

// RecipientKind tells what a notification is addressed to.
type RecipientKind string

// Recipient kinds.
const (
	RecipientSubscriber RecipientKind = "subscriber"
	RecipientQueue      RecipientKind = "queue"
)

// Notification is a single delivery to one recipient.
type Notification struct {
	Kind        RecipientKind
	RecipientID string // subscription or queue id
	UserID      string // set for subscribers
	To          string // delivery address, may be empty for LogSender
	Category    string
	Message     map[string]interface{}
}

// IsRetryable reports whether err is a temporary delivery failure: a sender
// error whose IsRetryable method returns true, or a delivery timeout.
func IsRetryable(err error) bool {
	var r interface{ IsRetryable() bool }
	if errors.As(err, &r) {
		return r.IsRetryable()
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// Sender delivers one notification. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, notification Notification) error
}

// LogSender writes notifications to the log instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender. A nil logger means slog.Default().
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send logs the notification.
func (s *LogSender) Send(ctx context.Context, n Notification) error {
	s.logger.InfoContext(ctx, "notification delivered to log",
		"kind", n.Kind,
		"recipient", n.RecipientID,
		"user_id", n.UserID,
		"to", n.To,
		"category", n.Category,
	)
	return nil
}
