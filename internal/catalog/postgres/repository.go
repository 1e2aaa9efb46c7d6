// Package postgres provides PostgreSQL implementation of the catalog repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bissquit/notification-manager/internal/catalog"
	"github.com/bissquit/notification-manager/internal/domain"
	pgutil "github.com/bissquit/notification-manager/internal/pkg/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const queueColumns = `id, service_id, name, type, endpoint, active, created_at`

// Repository implements the catalog.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateService inserts a service. The unique index on name makes the
// check-and-insert atomic.
func (r *Repository) CreateService(ctx context.Context, service *domain.Service) error {
	query := `
		INSERT INTO services (name, market_id, endpoint)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		service.Name,
		service.MarketID,
		service.Endpoint,
	).Scan(&service.ID, &service.CreatedAt)

	if err != nil {
		if pgutil.IsUniqueViolation(err) {
			return catalog.ErrServiceExists
		}
		return fmt.Errorf("create service: %w", err)
	}

	service.Queues = make([]domain.Queue, 0)
	return nil
}

// GetServiceByID retrieves a service and its queues.
func (r *Repository) GetServiceByID(ctx context.Context, id string) (*domain.Service, error) {
	query := `
		SELECT id, name, market_id, endpoint, created_at
		FROM services
		WHERE id = $1
	`
	var service domain.Service
	err := r.db.QueryRow(ctx, query, id).Scan(
		&service.ID,
		&service.Name,
		&service.MarketID,
		&service.Endpoint,
		&service.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || pgutil.IsInvalidText(err) {
			return nil, catalog.ErrServiceNotFound
		}
		return nil, fmt.Errorf("get service by id: %w", err)
	}

	queues, err := r.queuesOf(ctx, service.ID)
	if err != nil {
		return nil, err
	}
	service.Queues = queues

	return &service, nil
}

// ListServices retrieves all services with their queues.
func (r *Repository) ListServices(ctx context.Context) ([]domain.Service, error) {
	query := `
		SELECT id, name, market_id, endpoint, created_at
		FROM services
		ORDER BY created_at, name
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	services := make([]domain.Service, 0)
	index := make(map[string]int)
	for rows.Next() {
		var service domain.Service
		if err := rows.Scan(
			&service.ID,
			&service.Name,
			&service.MarketID,
			&service.Endpoint,
			&service.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		service.Queues = make([]domain.Queue, 0)
		index[service.ID] = len(services)
		services = append(services, service)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate services: %w", err)
	}

	if len(services) == 0 {
		return services, nil
	}

	queues, err := r.scanQueues(r.db.Query(ctx, `SELECT `+queueColumns+` FROM queues ORDER BY created_at, name`))
	if err != nil {
		return nil, err
	}
	for _, q := range queues {
		if i, ok := index[q.ServiceID]; ok {
			services[i].Queues = append(services[i].Queues, q)
		}
	}

	return services, nil
}

// DeleteService deletes a service; queues are removed by ON DELETE CASCADE.
func (r *Repository) DeleteService(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		if pgutil.IsInvalidText(err) {
			return catalog.ErrServiceNotFound
		}
		return fmt.Errorf("delete service: %w", err)
	}

	if result.RowsAffected() == 0 {
		return catalog.ErrServiceNotFound
	}
	return nil
}

// CreateQueue inserts a queue. The (service_id, name) unique constraint makes
// the check-and-insert atomic; the foreign key reports a missing service.
func (r *Repository) CreateQueue(ctx context.Context, queue *domain.Queue) error {
	query := `
		INSERT INTO queues (service_id, name, type, endpoint, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		queue.ServiceID,
		queue.Name,
		queue.Type,
		queue.Endpoint,
		queue.Active,
	).Scan(&queue.ID, &queue.CreatedAt)

	if err != nil {
		switch {
		case pgutil.IsUniqueViolation(err):
			return catalog.ErrQueueExists
		case pgutil.IsForeignKeyViolation(err), pgutil.IsInvalidText(err):
			return catalog.ErrServiceNotFound
		}
		return fmt.Errorf("create queue: %w", err)
	}
	return nil
}

// GetQueue retrieves one queue of a service.
func (r *Repository) GetQueue(ctx context.Context, serviceID, queueID string) (*domain.Queue, error) {
	if err := r.ensureService(ctx, serviceID); err != nil {
		return nil, err
	}

	query := `SELECT ` + queueColumns + ` FROM queues WHERE service_id = $1 AND id = $2`
	queue, err := scanQueue(r.db.QueryRow(ctx, query, serviceID, queueID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || pgutil.IsInvalidText(err) {
			return nil, catalog.ErrQueueNotFound
		}
		return nil, fmt.Errorf("get queue: %w", err)
	}
	return queue, nil
}

// ListQueues retrieves all queues of a service.
func (r *Repository) ListQueues(ctx context.Context, serviceID string) ([]domain.Queue, error) {
	if err := r.ensureService(ctx, serviceID); err != nil {
		return nil, err
	}
	return r.queuesOf(ctx, serviceID)
}

// DeleteQueue deletes a queue of a service.
func (r *Repository) DeleteQueue(ctx context.Context, serviceID, queueID string) error {
	if err := r.ensureService(ctx, serviceID); err != nil {
		return err
	}

	result, err := r.db.Exec(ctx, `DELETE FROM queues WHERE service_id = $1 AND id = $2`, serviceID, queueID)
	if err != nil {
		if pgutil.IsInvalidText(err) {
			return catalog.ErrQueueNotFound
		}
		return fmt.Errorf("delete queue: %w", err)
	}

	if result.RowsAffected() == 0 {
		return catalog.ErrQueueNotFound
	}
	return nil
}

// SetQueueActive updates the active flag and returns the updated queue.
func (r *Repository) SetQueueActive(ctx context.Context, serviceID, queueID string, active bool) (*domain.Queue, error) {
	if err := r.ensureService(ctx, serviceID); err != nil {
		return nil, err
	}

	query := `
		UPDATE queues SET active = $3
		WHERE service_id = $1 AND id = $2
		RETURNING ` + queueColumns
	queue, err := scanQueue(r.db.QueryRow(ctx, query, serviceID, queueID, active))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || pgutil.IsInvalidText(err) {
			return nil, catalog.ErrQueueNotFound
		}
		return nil, fmt.Errorf("set queue active: %w", err)
	}
	return queue, nil
}

// FindActiveQueuesByType returns active queues of a type joined with their service.
func (r *Repository) FindActiveQueuesByType(ctx context.Context, queueType string) ([]domain.QueueTarget, error) {
	query := `
		SELECT q.id, q.service_id, q.name, q.type, q.endpoint, q.active, q.created_at,
		       s.name, s.endpoint
		FROM queues q
		JOIN services s ON s.id = q.service_id
		WHERE q.active AND q.type = $1
		ORDER BY q.created_at
	`
	rows, err := r.db.Query(ctx, query, queueType)
	if err != nil {
		return nil, fmt.Errorf("find active queues: %w", err)
	}
	defer rows.Close()

	targets := make([]domain.QueueTarget, 0)
	for rows.Next() {
		var t domain.QueueTarget
		if err := rows.Scan(
			&t.ID,
			&t.ServiceID,
			&t.Name,
			&t.Type,
			&t.Endpoint,
			&t.Active,
			&t.CreatedAt,
			&t.ServiceName,
			&t.ServiceEndpoint,
		); err != nil {
			return nil, fmt.Errorf("scan queue target: %w", err)
		}
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue targets: %w", err)
	}

	return targets, nil
}

func (r *Repository) ensureService(ctx context.Context, serviceID string) error {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM services WHERE id = $1)`, serviceID).Scan(&exists)
	if err != nil {
		if pgutil.IsInvalidText(err) {
			return catalog.ErrServiceNotFound
		}
		return fmt.Errorf("check service: %w", err)
	}
	if !exists {
		return catalog.ErrServiceNotFound
	}
	return nil
}

func (r *Repository) queuesOf(ctx context.Context, serviceID string) ([]domain.Queue, error) {
	query := `SELECT ` + queueColumns + ` FROM queues WHERE service_id = $1 ORDER BY created_at, name`
	return r.scanQueues(r.db.Query(ctx, query, serviceID))
}

func (r *Repository) scanQueues(rows pgx.Rows, err error) ([]domain.Queue, error) {
	if err != nil {
		return nil, fmt.Errorf("list queues: %w", err)
	}
	defer rows.Close()

	queues := make([]domain.Queue, 0)
	for rows.Next() {
		queue, err := scanQueue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan queue: %w", err)
		}
		queues = append(queues, *queue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queues: %w", err)
	}
	return queues, nil
}

func scanQueue(row pgx.Row) (*domain.Queue, error) {
	var q domain.Queue
	if err := row.Scan(
		&q.ID,
		&q.ServiceID,
		&q.Name,
		&q.Type,
		&q.Endpoint,
		&q.Active,
		&q.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &q, nil
}
