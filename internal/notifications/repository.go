package notifications

import (
	"context"

	"github.com/bissquit/notification-manager/internal/domain"
)

// Repository defines the interface for subscription data access.
//
// CreateSubscription must check (user_id, category) uniqueness and insert
// atomically, returning ErrSubscriptionExists when the slot is taken.
type Repository interface {
	ListSubscriptions(ctx context.Context) ([]domain.Subscription, error)
	ListUserSubscriptions(ctx context.Context, userID string) ([]domain.Subscription, error)
	GetSubscription(ctx context.Context, userID, id string) (*domain.Subscription, error)
	CreateSubscription(ctx context.Context, sub *domain.Subscription) error
	DeleteSubscription(ctx context.Context, userID, id string) error
	SetSubscriptionActive(ctx context.Context, userID, id string, active bool) (*domain.Subscription, error)

	// FindActiveSubscribers returns active subscriptions with the given category.
	FindActiveSubscribers(ctx context.Context, category string) ([]domain.Subscription, error)
}
