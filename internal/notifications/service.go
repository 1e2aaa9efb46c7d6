// Package notifications manages user subscriptions and dispatches inbound
// notifications to the matching subscribers.
package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bissquit/notification-manager/internal/domain"
	"github.com/go-playground/validator/v10"
)

// CreateSubscriptionInput holds the fields accepted when subscribing.
// UserID comes from the URL path and is set by the service.
type CreateSubscriptionInput struct {
	UserID   string `json:"-" validate:"required,max=255"`
	Category string `json:"category" validate:"required,max=255"`
}

// Service provides subscription business logic.
type Service struct {
	repo       Repository
	dispatcher *Dispatcher
	validator  *validator.Validate
}

// NewService creates a new notifications service.
func NewService(repo Repository, dispatcher *Dispatcher) *Service {
	return &Service{
		repo:       repo,
		dispatcher: dispatcher,
		validator:  validator.New(),
	}
}

// ListSubscriptions returns subscriptions of every user.
func (s *Service) ListSubscriptions(ctx context.Context) ([]domain.Subscription, error) {
	return s.repo.ListSubscriptions(ctx)
}

// ListUserSubscriptions returns the subscriptions of one user.
// An unknown user has no subscriptions.
func (s *Service) ListUserSubscriptions(ctx context.Context, userID string) ([]domain.Subscription, error) {
	return s.repo.ListUserSubscriptions(ctx, userID)
}

// GetSubscription returns one subscription of a user.
func (s *Service) GetSubscription(ctx context.Context, userID, id string) (*domain.Subscription, error) {
	return s.repo.GetSubscription(ctx, userID, id)
}

// CreateSubscription subscribes a user to a category. New subscriptions are active.
func (s *Service) CreateSubscription(ctx context.Context, userID string, input CreateSubscriptionInput) (*domain.Subscription, error) {
	input.UserID = userID
	input.Category = strings.TrimSpace(input.Category)
	if err := s.validator.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIncompleteBody, err)
	}

	sub := &domain.Subscription{
		UserID:   input.UserID,
		Category: input.Category,
		Active:   true,
	}
	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		return nil, err
	}

	slog.Info("subscription created", "user_id", userID, "category", sub.Category, "subscription_id", sub.ID)
	return sub, nil
}

// DeleteSubscription removes a subscription and returns it.
func (s *Service) DeleteSubscription(ctx context.Context, userID, id string) (*domain.Subscription, error) {
	sub, err := s.repo.GetSubscription(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.DeleteSubscription(ctx, userID, id); err != nil {
		return nil, err
	}

	slog.Info("subscription deleted", "user_id", userID, "subscription_id", id)
	return sub, nil
}

// SwitchSubscriptionStatus activates or deactivates a subscription. Repeating
// the current state is not an error.
func (s *Service) SwitchSubscriptionStatus(ctx context.Context, userID, id string, active bool) (*domain.Subscription, error) {
	return s.repo.SetSubscriptionActive(ctx, userID, id, active)
}

// SearchUsersBySubscription delivers message to everyone subscribed to category.
func (s *Service) SearchUsersBySubscription(ctx context.Context, category string, message map[string]interface{}) (*Report, error) {
	return s.dispatcher.Dispatch(ctx, category, message)
}
