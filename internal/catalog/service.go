// Package catalog manages registered services and their notification queues.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/bissquit/notification-manager/internal/domain"
	"github.com/go-playground/validator/v10"
)

// CreateServiceInput holds the fields accepted when registering a service.
type CreateServiceInput struct {
	Name     string  `json:"name" validate:"required,max=255"`
	MarketID *string `json:"marketId" validate:"omitempty,max=255"`
	Endpoint *string `json:"endpoint" validate:"omitempty,url"`
}

// CreateQueueInput holds the fields accepted when creating a queue.
// Type defaults to Name when omitted.
type CreateQueueInput struct {
	Name     string  `json:"name" validate:"required,max=255"`
	Type     string  `json:"type" validate:"omitempty,max=255"`
	Endpoint *string `json:"endpoint" validate:"omitempty,url"`
}

// Service provides business logic for services and queues.
type Service struct {
	repo       Repository
	validator  *validator.Validate
	queueTypes []string
}

// NewService creates a catalog service accepting the given queue types.
// An empty list falls back to domain.DefaultQueueTypes.
func NewService(repo Repository, queueTypes []string) *Service {
	if len(queueTypes) == 0 {
		queueTypes = domain.DefaultQueueTypes
	}
	return &Service{
		repo:       repo,
		validator:  validator.New(),
		queueTypes: slices.Clone(queueTypes),
	}
}

// QueueTypes returns the allowed queue types.
func (s *Service) QueueTypes() []string {
	return slices.Clone(s.queueTypes)
}

// GetService returns a service with its queues.
func (s *Service) GetService(ctx context.Context, id string) (*domain.Service, error) {
	return s.repo.GetServiceByID(ctx, id)
}

// ListServices returns every registered service.
func (s *Service) ListServices(ctx context.Context) ([]domain.Service, error) {
	return s.repo.ListServices(ctx)
}

// CreateService validates input and registers a new service.
func (s *Service) CreateService(ctx context.Context, input CreateServiceInput) (*domain.Service, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := s.validator.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIncompleteBody, err)
	}

	service := &domain.Service{
		Name:     input.Name,
		MarketID: input.MarketID,
		Endpoint: input.Endpoint,
		Queues:   make([]domain.Queue, 0),
	}

	if err := s.repo.CreateService(ctx, service); err != nil {
		return nil, err
	}

	slog.Info("service created", "service_id", service.ID, "name", service.Name)
	return service, nil
}

// DeleteService removes a service and its queues, returning what was deleted.
func (s *Service) DeleteService(ctx context.Context, id string) (*domain.Service, error) {
	service, err := s.repo.GetServiceByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.DeleteService(ctx, id); err != nil {
		return nil, err
	}

	slog.Info("service deleted", "service_id", id, "queues", len(service.Queues))
	return service, nil
}

// ListQueues returns all queues of a service.
func (s *Service) ListQueues(ctx context.Context, serviceID string) ([]domain.Queue, error) {
	return s.repo.ListQueues(ctx, serviceID)
}

// GetQueue returns a single queue of a service.
func (s *Service) GetQueue(ctx context.Context, serviceID, queueID string) (*domain.Queue, error) {
	return s.repo.GetQueue(ctx, serviceID, queueID)
}

// CreateQueue validates input and creates an inactive queue under the service.
func (s *Service) CreateQueue(ctx context.Context, serviceID string, input CreateQueueInput) (*domain.Queue, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Type = strings.TrimSpace(input.Type)
	if err := s.validator.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIncompleteBody, err)
	}

	queueType := input.Type
	if queueType == "" {
		queueType = input.Name
	}
	if !slices.Contains(s.queueTypes, queueType) {
		return nil, ErrInvalidQueueType
	}

	queue := &domain.Queue{
		ServiceID: serviceID,
		Name:      input.Name,
		Type:      queueType,
		Endpoint:  input.Endpoint,
		Active:    false,
	}

	if err := s.repo.CreateQueue(ctx, queue); err != nil {
		return nil, err
	}

	slog.Info("queue created", "service_id", serviceID, "queue_id", queue.ID, "type", queue.Type)
	return queue, nil
}

// DeleteQueue removes a queue, returning what was deleted.
func (s *Service) DeleteQueue(ctx context.Context, serviceID, queueID string) (*domain.Queue, error) {
	queue, err := s.repo.GetQueue(ctx, serviceID, queueID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.DeleteQueue(ctx, serviceID, queueID); err != nil {
		return nil, err
	}

	return queue, nil
}

// SwitchQueueStatus sets the queue's active flag. Setting the current value is a no-op.
func (s *Service) SwitchQueueStatus(ctx context.Context, serviceID, queueID string, active bool) (*domain.Queue, error) {
	queue, err := s.repo.SetQueueActive(ctx, serviceID, queueID, active)
	if err != nil {
		return nil, err
	}

	slog.Info("queue status switched", "service_id", serviceID, "queue_id", queueID, "active", active)
	return queue, nil
}

// FindActiveQueues returns active queues carrying the given type, with their service endpoints.
func (s *Service) FindActiveQueues(ctx context.Context, queueType string) ([]domain.QueueTarget, error) {
	return s.repo.FindActiveQueuesByType(ctx, queueType)
}
