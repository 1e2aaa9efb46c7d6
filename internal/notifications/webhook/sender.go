// Package webhook delivers notifications as JSON POST requests.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bissquit/notification-manager/internal/notifications"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "notification-manager"
)

// Config holds webhook sender configuration.
type Config struct {
	Timeout   time.Duration
	RateLimit float64 // requests per second across all endpoints, 0 means unlimited
	Burst     int
	UserAgent string
}

// Sender posts notifications to HTTP endpoints.
type Sender struct {
	config  Config
	client  *resty.Client
	limiter *rate.Limiter
}

// NewSender creates a new webhook sender.
func NewSender(config Config) *Sender {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.UserAgent == "" {
		config.UserAgent = defaultUserAgent
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}

	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
	}

	client := resty.New().
		SetTimeout(config.Timeout).
		SetHeader("User-Agent", config.UserAgent).
		SetHeader("Content-Type", "application/json")

	slog.Info("webhook sender configured",
		"timeout", config.Timeout,
		"rate_limit", config.RateLimit,
	)

	return &Sender{
		config:  config,
		client:  client,
		limiter: rate.NewLimiter(limit, config.Burst),
	}
}

type payload struct {
	Kind           string                 `json:"kind"`
	SubscriptionID string                 `json:"subscriptionId,omitempty"`
	UserID         string                 `json:"userId,omitempty"`
	QueueID        string                 `json:"queueId,omitempty"`
	Category       string                 `json:"category"`
	Message        map[string]interface{} `json:"message"`
}

// Send posts the notification to notification.To.
func (s *Sender) Send(ctx context.Context, n notifications.Notification) error {
	if n.To == "" {
		return &PermanentError{Message: "endpoint is empty"}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	body := payload{
		Kind:     string(n.Kind),
		UserID:   n.UserID,
		Category: n.Category,
		Message:  n.Message,
	}
	switch n.Kind {
	case notifications.RecipientSubscriber:
		body.SubscriptionID = n.RecipientID
	case notifications.RecipientQueue:
		body.QueueID = n.RecipientID
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(n.To)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return &RetryableError{Message: fmt.Sprintf("send request: %v", err)}
	}

	return s.handleResponse(resp, n.To)
}

func (s *Sender) handleResponse(resp *resty.Response, endpoint string) error {
	code := resp.StatusCode()

	switch {
	case code >= 200 && code < 300:
		slog.Debug("webhook delivered", "endpoint", maskURL(endpoint), "status", code)
		return nil

	case code == http.StatusTooManyRequests:
		return &RetryableError{Code: code, Message: "rate limited"}

	case code >= 500:
		return &RetryableError{Code: code, Message: fmt.Sprintf("server error: %s", resp.String())}

	case code >= 400:
		return &PermanentError{Code: code, Message: fmt.Sprintf("rejected: %s", resp.String())}

	default:
		return fmt.Errorf("unexpected status %d", code)
	}
}

func maskURL(url string) string {
	if len(url) > 40 {
		return url[:20] + "..." + url[len(url)-10:]
	}
	return url
}

// PermanentError indicates a delivery that will not succeed if repeated.
type PermanentError struct {
	Code    int
	Message string
}

func (e *PermanentError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("webhook error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("webhook error: %s", e.Message)
}

// IsRetryable returns false.
func (e *PermanentError) IsRetryable() bool { return false }

// RetryableError indicates a temporary delivery failure.
type RetryableError struct {
	Code    int
	Message string
}

func (e *RetryableError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("webhook error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("webhook error: %s", e.Message)
}

// IsRetryable returns true.
func (e *RetryableError) IsRetryable() bool { return true }
