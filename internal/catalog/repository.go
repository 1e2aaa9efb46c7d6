package catalog

import (
	"context"

	"github.com/bissquit/notification-manager/internal/domain"
)

// Repository defines storage for services and their queues.
//
// CreateService and CreateQueue must check uniqueness and insert atomically:
// concurrent creates of the same service name, or of the same queue name in
// one service, must yield exactly one success and ErrServiceExists /
// ErrQueueExists for the rest.
type Repository interface {
	CreateService(ctx context.Context, service *domain.Service) error
	GetServiceByID(ctx context.Context, id string) (*domain.Service, error)
	ListServices(ctx context.Context) ([]domain.Service, error)
	// DeleteService removes the service together with its queues.
	DeleteService(ctx context.Context, id string) error

	CreateQueue(ctx context.Context, queue *domain.Queue) error
	GetQueue(ctx context.Context, serviceID, queueID string) (*domain.Queue, error)
	ListQueues(ctx context.Context, serviceID string) ([]domain.Queue, error)
	DeleteQueue(ctx context.Context, serviceID, queueID string) error
	SetQueueActive(ctx context.Context, serviceID, queueID string, active bool) (*domain.Queue, error)

	// FindActiveQueuesByType returns active queues of the given type across all services.
	FindActiveQueuesByType(ctx context.Context, queueType string) ([]domain.QueueTarget, error)
}
