package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/bissquit/notification-manager/internal/catalog"
	"github.com/bissquit/notification-manager/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_CreateService_ConcurrentDuplicates(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	const n = 32
	var created, conflicts atomic.Int32
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.CreateService(ctx, &domain.Service{Name: "svc"})
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, catalog.ErrServiceExists):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, created.Load())
	assert.EqualValues(t, n-1, conflicts.Load())
}

func TestRepository_CreateQueue_ConcurrentDuplicates(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	service := &domain.Service{Name: "svc"}
	require.NoError(t, repo.CreateService(ctx, service))

	const n = 32
	var created atomic.Int32
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.CreateQueue(ctx, &domain.Queue{ServiceID: service.ID, Name: "q1", Type: "offering.new"})
			if err == nil {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, created.Load())

	queues, err := repo.ListQueues(ctx, service.ID)
	require.NoError(t, err)
	assert.Len(t, queues, 1)
}

func TestRepository_ReturnsCopies(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	service := &domain.Service{Name: "svc"}
	require.NoError(t, repo.CreateService(ctx, service))
	queue := &domain.Queue{ServiceID: service.ID, Name: "q1", Type: "offering.new"}
	require.NoError(t, repo.CreateQueue(ctx, queue))

	fetched, err := repo.GetQueue(ctx, service.ID, queue.ID)
	require.NoError(t, err)
	fetched.Active = true

	again, err := repo.GetQueue(ctx, service.ID, queue.ID)
	require.NoError(t, err)
	assert.False(t, again.Active)
}

func TestRepository_ListServices_Empty(t *testing.T) {
	services, err := NewRepository().ListServices(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, services)
	assert.Empty(t, services)
}

func TestRepository_DeleteQueue_MissingService(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	service := &domain.Service{Name: "svc"}
	require.NoError(t, repo.CreateService(ctx, service))
	queue := &domain.Queue{ServiceID: service.ID, Name: "q1", Type: "offering.new"}
	require.NoError(t, repo.CreateQueue(ctx, queue))

	assert.ErrorIs(t, repo.DeleteQueue(ctx, "missing", queue.ID), catalog.ErrServiceNotFound)

	require.NoError(t, repo.DeleteQueue(ctx, service.ID, queue.ID))
	assert.ErrorIs(t, repo.DeleteQueue(ctx, service.ID, queue.ID), catalog.ErrQueueNotFound)
}
