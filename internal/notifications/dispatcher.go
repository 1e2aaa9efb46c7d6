package notifications

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bissquit/notification-manager/internal/domain"
	"github.com/bissquit/notification-manager/internal/pkg/ctxlog"
	"golang.org/x/sync/errgroup"
)

// UserIDPlaceholder is replaced with the escaped user id in SubscriberURL.
const UserIDPlaceholder = "{user_id}"

// QueueFinder resolves active queues carrying a notification type.
type QueueFinder interface {
	FindActiveQueues(ctx context.Context, queueType string) ([]domain.QueueTarget, error)
}

// DispatcherConfig contains fan-out settings.
type DispatcherConfig struct {
	Concurrency int
	Timeout     time.Duration // per delivery
	// DispatchTimeout bounds a whole Dispatch call. Deliveries that have not
	// finished by then fail. Zero means no overall bound.
	DispatchTimeout time.Duration
	SubscriberURL   string
}

// DefaultDispatcherConfig returns default dispatcher configuration.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Concurrency: 16,
		Timeout:     5 * time.Second,
	}
}

// Report summarizes one dispatch.
type Report struct {
	Category   string
	Recipients int
	Delivered  int
	Failed     int
	Skipped    int
}

// Dispatcher fans a notification out to subscribers and queues.
type Dispatcher struct {
	config DispatcherConfig
	repo   Repository
	queues QueueFinder
	sender Sender
}

// NewDispatcher creates a new dispatcher. queues may be nil, in which case
// only subscribers are notified.
func NewDispatcher(config DispatcherConfig, repo Repository, queues QueueFinder, sender Sender) *Dispatcher {
	defaults := DefaultDispatcherConfig()
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	return &Dispatcher{
		config: config,
		repo:   repo,
		queues: queues,
		sender: sender,
	}
}

// Dispatch delivers message to every active subscription of category and to
// every active queue whose type equals category. A failed delivery is logged
// and counted; it never stops delivery to the remaining recipients.
func (d *Dispatcher) Dispatch(ctx context.Context, category string, message map[string]interface{}) (*Report, error) {
	ctx = ctxlog.With(ctx, "category", category)
	logger := ctxlog.FromContext(ctx)
	report := &Report{Category: category}

	if category == "" {
		logger.Info("notify without category, nothing to dispatch")
		return report, nil
	}

	recipients, skipped, err := d.resolve(ctx, category, message)
	if err != nil {
		return nil, err
	}
	report.Recipients = len(recipients)
	report.Skipped = skipped
	dispatchRecipients.Observe(float64(len(recipients)))

	logger.Info("dispatching notification", "recipients", len(recipients), "skipped", skipped)

	// Deliveries outlive a caller that hangs up; each one is bounded by its own timeout.
	sendCtx := context.WithoutCancel(ctx)
	if d.config.DispatchTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(sendCtx, d.config.DispatchTimeout)
		defer cancel()
	}

	var delivered, failed atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(d.config.Concurrency)

	for _, n := range recipients {
		g.Go(func() error {
			if d.deliver(sendCtx, n) {
				delivered.Add(1)
			} else {
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Delivered = int(delivered.Load())
	report.Failed = int(failed.Load())

	logger.Info("notification dispatched",
		"delivered", report.Delivered,
		"failed", report.Failed,
	)
	return report, nil
}

func (d *Dispatcher) deliver(ctx context.Context, n Notification) bool {
	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	start := time.Now()
	err := ctx.Err()
	if err == nil {
		err = d.send(ctx, n)
	}
	duration := time.Since(start)

	if err != nil {
		retryable := IsRetryable(err)
		status := "rejected"
		if retryable {
			status = "failed"
		}
		recordDelivery(n.Kind, status, duration)
		ctxlog.FromContext(ctx).Error("failed to deliver notification",
			"kind", n.Kind,
			"recipient", n.RecipientID,
			"to", n.To,
			"retryable", retryable,
			"error", err,
		)
		return false
	}

	recordDelivery(n.Kind, "delivered", duration)
	return true
}

func (d *Dispatcher) send(ctx context.Context, n Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sender panic: %v", r)
		}
	}()
	return d.sender.Send(ctx, n)
}

func (d *Dispatcher) resolve(ctx context.Context, category string, message map[string]interface{}) ([]Notification, int, error) {
	subscribers, err := d.repo.FindActiveSubscribers(ctx, category)
	if err != nil {
		return nil, 0, fmt.Errorf("find subscribers: %w", err)
	}

	recipients := make([]Notification, 0, len(subscribers))
	for _, sub := range subscribers {
		recipients = append(recipients, Notification{
			Kind:        RecipientSubscriber,
			RecipientID: sub.ID,
			UserID:      sub.UserID,
			To:          d.subscriberAddress(sub.UserID),
			Category:    category,
			Message:     message,
		})
	}

	if d.queues == nil {
		return recipients, 0, nil
	}

	targets, err := d.queues.FindActiveQueues(ctx, category)
	if err != nil {
		return nil, 0, fmt.Errorf("find queues: %w", err)
	}

	skipped := 0
	for _, target := range targets {
		endpoint := target.DeliveryEndpoint()
		if endpoint == "" {
			ctxlog.FromContext(ctx).Debug("queue has no endpoint, skipping",
				"queue_id", target.ID,
				"service", target.ServiceName,
			)
			skipped++
			continue
		}
		recipients = append(recipients, Notification{
			Kind:        RecipientQueue,
			RecipientID: target.ID,
			To:          endpoint,
			Category:    category,
			Message:     message,
		})
	}

	return recipients, skipped, nil
}

func (d *Dispatcher) subscriberAddress(userID string) string {
	if d.config.SubscriberURL == "" {
		return ""
	}
	return strings.ReplaceAll(d.config.SubscriberURL, UserIDPlaceholder, url.PathEscape(userID))
}
