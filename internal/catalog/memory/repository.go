// Package memory provides an in-process implementation of the catalog repository.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bissquit/notification-manager/internal/catalog"
	"github.com/bissquit/notification-manager/internal/domain"
	"github.com/google/uuid"
)

type serviceRecord struct {
	service domain.Service
	queues  []domain.Queue
}

// Repository implements catalog.Repository with a mutex-guarded map.
// Uniqueness checks and inserts happen under one write lock.
type Repository struct {
	mu       sync.RWMutex
	services map[string]*serviceRecord
}

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{services: make(map[string]*serviceRecord)}
}

// CreateService stores a service if no service with the same name exists.
func (r *Repository) CreateService(_ context.Context, service *domain.Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.services {
		if rec.service.Name == service.Name {
			return catalog.ErrServiceExists
		}
	}

	service.ID = uuid.NewString()
	service.CreatedAt = time.Now().UTC()
	service.Queues = make([]domain.Queue, 0)

	stored := *service
	stored.Queues = nil
	r.services[service.ID] = &serviceRecord{service: stored, queues: make([]domain.Queue, 0)}
	return nil
}

// GetServiceByID returns a copy of the service with its queues.
func (r *Repository) GetServiceByID(_ context.Context, id string) (*domain.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.services[id]
	if !ok {
		return nil, catalog.ErrServiceNotFound
	}
	s := rec.snapshot()
	return &s, nil
}

// ListServices returns all services ordered by creation time.
func (r *Repository) ListServices(_ context.Context) ([]domain.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	services := make([]domain.Service, 0, len(r.services))
	for _, rec := range r.services {
		services = append(services, rec.snapshot())
	}
	slices.SortFunc(services, func(a, b domain.Service) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return services, nil
}

// DeleteService removes the service; its queues go with it.
func (r *Repository) DeleteService(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.services[id]; !ok {
		return catalog.ErrServiceNotFound
	}
	delete(r.services, id)
	return nil
}

// CreateQueue appends a queue if its name is free within the service.
func (r *Repository) CreateQueue(_ context.Context, queue *domain.Queue) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.services[queue.ServiceID]
	if !ok {
		return catalog.ErrServiceNotFound
	}

	for _, q := range rec.queues {
		if q.Name == queue.Name {
			return catalog.ErrQueueExists
		}
	}

	queue.ID = uuid.NewString()
	queue.CreatedAt = time.Now().UTC()
	rec.queues = append(rec.queues, *queue)
	return nil
}

// GetQueue returns a copy of one queue.
func (r *Repository) GetQueue(_ context.Context, serviceID, queueID string) (*domain.Queue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.services[serviceID]
	if !ok {
		return nil, catalog.ErrServiceNotFound
	}
	i := rec.indexOf(queueID)
	if i < 0 {
		return nil, catalog.ErrQueueNotFound
	}
	q := rec.queues[i]
	return &q, nil
}

// ListQueues returns the queues of a service in creation order.
func (r *Repository) ListQueues(_ context.Context, serviceID string) ([]domain.Queue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.services[serviceID]
	if !ok {
		return nil, catalog.ErrServiceNotFound
	}
	return slices.Clone(rec.queues), nil
}

// DeleteQueue removes a queue from its service.
func (r *Repository) DeleteQueue(_ context.Context, serviceID, queueID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.services[serviceID]
	if !ok {
		return catalog.ErrServiceNotFound
	}
	i := rec.indexOf(queueID)
	if i < 0 {
		return catalog.ErrQueueNotFound
	}
	rec.queues = slices.Delete(rec.queues, i, i+1)
	return nil
}

// SetQueueActive sets the active flag and returns the updated queue.
func (r *Repository) SetQueueActive(_ context.Context, serviceID, queueID string, active bool) (*domain.Queue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.services[serviceID]
	if !ok {
		return nil, catalog.ErrServiceNotFound
	}
	i := rec.indexOf(queueID)
	if i < 0 {
		return nil, catalog.ErrQueueNotFound
	}
	rec.queues[i].Active = active
	q := rec.queues[i]
	return &q, nil
}

// FindActiveQueuesByType scans all services for active queues of queueType.
func (r *Repository) FindActiveQueuesByType(_ context.Context, queueType string) ([]domain.QueueTarget, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	targets := make([]domain.QueueTarget, 0)
	for _, rec := range r.services {
		for _, q := range rec.queues {
			if q.Active && q.Type == queueType {
				targets = append(targets, domain.QueueTarget{
					Queue:           q,
					ServiceName:     rec.service.Name,
					ServiceEndpoint: rec.service.Endpoint,
				})
			}
		}
	}
	return targets, nil
}

func (rec *serviceRecord) snapshot() domain.Service {
	s := rec.service
	s.Queues = slices.Clone(rec.queues)
	if s.Queues == nil {
		s.Queues = make([]domain.Queue, 0)
	}
	return s
}

func (rec *serviceRecord) indexOf(queueID string) int {
	return slices.IndexFunc(rec.queues, func(q domain.Queue) bool { return q.ID == queueID })
}
