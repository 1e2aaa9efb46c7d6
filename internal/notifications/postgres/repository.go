// Package postgres provides PostgreSQL implementation of the subscription repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bissquit/notification-manager/internal/domain"
	"github.com/bissquit/notification-manager/internal/notifications"
	pgutil "github.com/bissquit/notification-manager/internal/pkg/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const subscriptionColumns = `id, user_id, category, active, created_at`

// Repository implements notifications.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ListSubscriptions retrieves all subscriptions.
func (r *Repository) ListSubscriptions(ctx context.Context) ([]domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions ORDER BY created_at, id`
	return scanSubscriptions(r.db.Query(ctx, query))
}

// ListUserSubscriptions retrieves the subscriptions of a user.
func (r *Repository) ListUserSubscriptions(ctx context.Context, userID string) ([]domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1 ORDER BY created_at, id`
	return scanSubscriptions(r.db.Query(ctx, query, userID))
}

// GetSubscription retrieves one subscription of a user.
func (r *Repository) GetSubscription(ctx context.Context, userID, id string) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1 AND id = $2`
	sub, err := scanSubscription(r.db.QueryRow(ctx, query, userID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || pgutil.IsInvalidText(err) {
			return nil, notifications.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return sub, nil
}

// CreateSubscription inserts a subscription. The (user_id, category) unique
// constraint makes the check-and-insert atomic.
func (r *Repository) CreateSubscription(ctx context.Context, sub *domain.Subscription) error {
	query := `
		INSERT INTO subscriptions (user_id, category, active)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, sub.UserID, sub.Category, sub.Active).Scan(&sub.ID, &sub.CreatedAt)
	if err != nil {
		if pgutil.IsUniqueViolation(err) {
			return notifications.ErrSubscriptionExists
		}
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

// DeleteSubscription deletes one subscription of a user.
func (r *Repository) DeleteSubscription(ctx context.Context, userID, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM subscriptions WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		if pgutil.IsInvalidText(err) {
			return notifications.ErrSubscriptionNotFound
		}
		return fmt.Errorf("delete subscription: %w", err)
	}

	if result.RowsAffected() == 0 {
		return notifications.ErrSubscriptionNotFound
	}
	return nil
}

// SetSubscriptionActive updates the active flag and returns the updated subscription.
func (r *Repository) SetSubscriptionActive(ctx context.Context, userID, id string, active bool) (*domain.Subscription, error) {
	query := `
		UPDATE subscriptions SET active = $3
		WHERE user_id = $1 AND id = $2
		RETURNING ` + subscriptionColumns
	sub, err := scanSubscription(r.db.QueryRow(ctx, query, userID, id, active))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || pgutil.IsInvalidText(err) {
			return nil, notifications.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("set subscription active: %w", err)
	}
	return sub, nil
}

// FindActiveSubscribers retrieves active subscriptions of a category.
func (r *Repository) FindActiveSubscribers(ctx context.Context, category string) ([]domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE active AND category = $1 ORDER BY created_at, id`
	return scanSubscriptions(r.db.Query(ctx, query, category))
}

func scanSubscriptions(rows pgx.Rows, err error) ([]domain.Subscription, error) {
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	subs := make([]domain.Subscription, 0)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}
	return subs, nil
}

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var s domain.Subscription
	if err := row.Scan(&s.ID, &s.UserID, &s.Category, &s.Active, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
