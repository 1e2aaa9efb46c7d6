// Package memory provides an in-process implementation of the subscription repository.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bissquit/notification-manager/internal/domain"
	"github.com/bissquit/notification-manager/internal/notifications"
	"github.com/google/uuid"
)

type slot struct {
	userID   string
	category string
}

// Repository implements notifications.Repository with mutex-guarded maps.
type Repository struct {
	mu     sync.RWMutex
	byID   map[string]*domain.Subscription
	bySlot map[slot]string
}

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{
		byID:   make(map[string]*domain.Subscription),
		bySlot: make(map[slot]string),
	}
}

// ListSubscriptions returns every subscription ordered by creation time.
func (r *Repository) ListSubscriptions(_ context.Context) ([]domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(func(*domain.Subscription) bool { return true }), nil
}

// ListUserSubscriptions returns the subscriptions of userID.
func (r *Repository) ListUserSubscriptions(_ context.Context, userID string) ([]domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(func(s *domain.Subscription) bool { return s.UserID == userID }), nil
}

// GetSubscription returns a copy of one subscription owned by userID.
func (r *Repository) GetSubscription(_ context.Context, userID, id string) (*domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, err := r.lookup(userID, id)
	if err != nil {
		return nil, err
	}
	cp := *sub
	return &cp, nil
}

// CreateSubscription stores sub unless the (user, category) slot is taken.
func (r *Repository) CreateSubscription(_ context.Context, sub *domain.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := slot{userID: sub.UserID, category: sub.Category}
	if _, taken := r.bySlot[key]; taken {
		return notifications.ErrSubscriptionExists
	}

	sub.ID = uuid.NewString()
	sub.CreatedAt = time.Now().UTC()

	stored := *sub
	r.byID[sub.ID] = &stored
	r.bySlot[key] = sub.ID
	return nil
}

// DeleteSubscription removes a subscription and frees its slot.
func (r *Repository) DeleteSubscription(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, err := r.lookup(userID, id)
	if err != nil {
		return err
	}
	delete(r.bySlot, slot{userID: sub.UserID, category: sub.Category})
	delete(r.byID, id)
	return nil
}

// SetSubscriptionActive sets the active flag and returns the updated subscription.
func (r *Repository) SetSubscriptionActive(_ context.Context, userID, id string, active bool) (*domain.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, err := r.lookup(userID, id)
	if err != nil {
		return nil, err
	}
	sub.Active = active
	cp := *sub
	return &cp, nil
}

// FindActiveSubscribers returns active subscriptions of category.
func (r *Repository) FindActiveSubscribers(_ context.Context, category string) ([]domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(func(s *domain.Subscription) bool { return s.Active && s.Category == category }), nil
}

func (r *Repository) lookup(userID, id string) (*domain.Subscription, error) {
	sub, ok := r.byID[id]
	if !ok || sub.UserID != userID {
		return nil, notifications.ErrSubscriptionNotFound
	}
	return sub, nil
}

func (r *Repository) collect(match func(*domain.Subscription) bool) []domain.Subscription {
	subs := make([]domain.Subscription, 0)
	for _, s := range r.byID {
		if match(s) {
			subs = append(subs, *s)
		}
	}
	slices.SortFunc(subs, func(a, b domain.Subscription) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return subs
}
