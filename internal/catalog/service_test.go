package catalog_test

import (
	"context"
	"testing"

	"github.com/bissquit/notification-manager/internal/catalog"
	"github.com/bissquit/notification-manager/internal/catalog/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *catalog.Service {
	return catalog.NewService(memory.NewRepository(), nil)
}

func strPtr(s string) *string { return &s }

func TestService_CreateThenGet(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	created, err := svc.CreateService(ctx, catalog.CreateServiceInput{
		Name:     "svc1",
		Endpoint: strPtr("https://example.com/hook"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Empty(t, created.Queues)

	fetched, err := svc.GetService(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, created.Name, fetched.Name)
	assert.Equal(t, created.Endpoint, fetched.Endpoint)
	assert.Equal(t, created.MarketID, fetched.MarketID)
	assert.Empty(t, fetched.Queues)
}

func TestService_CreateService_Incomplete(t *testing.T) {
	svc := newTestService()

	tests := []struct {
		name  string
		input catalog.CreateServiceInput
	}{
		{"missing name", catalog.CreateServiceInput{Endpoint: strPtr("https://example.com")}},
		{"blank name", catalog.CreateServiceInput{Name: "   "}},
		{"bad endpoint", catalog.CreateServiceInput{Name: "svc", Endpoint: strPtr("not a url")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateService(context.Background(), tt.input)
			assert.ErrorIs(t, err, catalog.ErrIncompleteBody)
		})
	}
}

func TestService_CreateService_AlreadyExists(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	_, err := svc.CreateService(ctx, catalog.CreateServiceInput{Name: "svc1"})
	require.NoError(t, err)

	_, err = svc.CreateService(ctx, catalog.CreateServiceInput{Name: "svc1", Endpoint: strPtr("https://other.example.com")})
	assert.ErrorIs(t, err, catalog.ErrServiceExists)
}

func TestService_DeleteService_Twice(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	created, err := svc.CreateService(ctx, catalog.CreateServiceInput{Name: "svc1"})
	require.NoError(t, err)

	deleted, err := svc.DeleteService(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)

	_, err = svc.DeleteService(ctx, created.ID)
	assert.ErrorIs(t, err, catalog.ErrServiceNotFound)
}

func TestService_DeleteService_Unknown(t *testing.T) {
	_, err := newTestService().DeleteService(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, catalog.ErrServiceNotFound)
}

func TestService_DeleteService_CascadesQueues(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	service, err := svc.CreateService(ctx, catalog.CreateServiceInput{Name: "svc1"})
	require.NoError(t, err)
	queue, err := svc.CreateQueue(ctx, service.ID, catalog.CreateQueueInput{Name: "offering.new"})
	require.NoError(t, err)
	_, err = svc.SwitchQueueStatus(ctx, service.ID, queue.ID, true)
	require.NoError(t, err)

	deleted, err := svc.DeleteService(ctx, service.ID)
	require.NoError(t, err)
	require.Len(t, deleted.Queues, 1)
	assert.Equal(t, queue.ID, deleted.Queues[0].ID)

	_, err = svc.GetQueue(ctx, service.ID, queue.ID)
	assert.ErrorIs(t, err, catalog.ErrServiceNotFound)

	targets, err := svc.FindActiveQueues(ctx, "offering.new")
	require.NoError(t, err)
	assert.Empty(t, targets)
}

func TestService_CreateQueue(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	service, err := svc.CreateService(ctx, catalog.CreateServiceInput{Name: "svc1"})
	require.NoError(t, err)

	queue, err := svc.CreateQueue(ctx, service.ID, catalog.CreateQueueInput{Name: "q1", Type: "offering.new"})
	require.NoError(t, err)
	assert.NotEmpty(t, queue.ID)
	assert.Equal(t, "q1", queue.Name)
	assert.Equal(t, "offering.new", queue.Type)
	assert.False(t, queue.Active)

	fetched, err := svc.GetQueue(ctx, service.ID, queue.ID)
	require.NoError(t, err)
	assert.Equal(t, queue, fetched)

	queues, err := svc.ListQueues(ctx, service.ID)
	require.NoError(t, err)
	assert.Len(t, queues, 1)
}

func TestService_CreateQueue_TypeDefaultsToName(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	service, err := svc.CreateService(ctx, catalog.CreateServiceInput{Name: "svc1"})
	require.NoError(t, err)

	queue, err := svc.CreateQueue(ctx, service.ID, catalog.CreateQueueInput{Name: "agreement.accepted"})
	require.NoError(t, err)
	assert.Equal(t, "agreement.accepted", queue.Type)
}

func TestService_CreateQueue_Errors(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	service, err := svc.CreateService(ctx, catalog.CreateServiceInput{Name: "svc1"})
	require.NoError(t, err)
	_, err = svc.CreateQueue(ctx, service.ID, catalog.CreateQueueInput{Name: "q1", Type: "offering.new"})
	require.NoError(t, err)

	tests := []struct {
		name      string
		serviceID string
		input     catalog.CreateQueueInput
		wantErr   error
	}{
		{"incomplete", service.ID, catalog.CreateQueueInput{Type: "offering.new"}, catalog.ErrIncompleteBody},
		{"invalid type", service.ID, catalog.CreateQueueInput{Name: "q2", Type: "weather.alert"}, catalog.ErrInvalidQueueType},
		{"name taken with different type", service.ID, catalog.CreateQueueInput{Name: "q1", Type: "offering.update"}, catalog.ErrQueueExists},
		{"unknown service", "missing", catalog.CreateQueueInput{Name: "q1", Type: "offering.new"}, catalog.ErrServiceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateQueue(ctx, tt.serviceID, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_CreateQueue_SameNameOtherService(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	s1, err := svc.CreateService(ctx, catalog.CreateServiceInput{Name: "svc1"})
	require.NoError(t, err)
	s2, err := svc.CreateService(ctx, catalog.CreateServiceInput{Name: "svc2"})
	require.NoError(t, err)

	_, err = svc.CreateQueue(ctx, s1.ID, catalog.CreateQueueInput{Name: "offering.new"})
	require.NoError(t, err)
	_, err = svc.CreateQueue(ctx, s2.ID, catalog.CreateQueueInput{Name: "offering.new"})
	assert.NoError(t, err)
}

func TestService_SwitchQueueStatus_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	service, err := svc.CreateService(ctx, catalog.CreateServiceInput{Name: "svc1"})
	require.NoError(t, err)
	queue, err := svc.CreateQueue(ctx, service.ID, catalog.CreateQueueInput{Name: "q1", Type: "offering.new"})
	require.NoError(t, err)

	for range 2 {
		updated, err := svc.SwitchQueueStatus(ctx, service.ID, queue.ID, true)
		require.NoError(t, err)
		assert.True(t, updated.Active)
	}

	for range 2 {
		updated, err := svc.SwitchQueueStatus(ctx, service.ID, queue.ID, false)
		require.NoError(t, err)
		assert.False(t, updated.Active)
	}

	_, err = svc.SwitchQueueStatus(ctx, service.ID, "missing", true)
	assert.ErrorIs(t, err, catalog.ErrQueueNotFound)
}

func TestService_DeleteQueue(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	service, err := svc.CreateService(ctx, catalog.CreateServiceInput{Name: "svc1"})
	require.NoError(t, err)
	queue, err := svc.CreateQueue(ctx, service.ID, catalog.CreateQueueInput{Name: "q1", Type: "offering.new"})
	require.NoError(t, err)

	deleted, err := svc.DeleteQueue(ctx, service.ID, queue.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.ID, deleted.ID)

	_, err = svc.DeleteQueue(ctx, service.ID, queue.ID)
	assert.ErrorIs(t, err, catalog.ErrQueueNotFound)

	// name is free again
	_, err = svc.CreateQueue(ctx, service.ID, catalog.CreateQueueInput{Name: "q1", Type: "offering.new"})
	assert.NoError(t, err)
}

func TestService_FindActiveQueues(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	service, err := svc.CreateService(ctx, catalog.CreateServiceInput{Name: "svc1", Endpoint: strPtr("https://svc.example.com/hook")})
	require.NoError(t, err)
	active, err := svc.CreateQueue(ctx, service.ID, catalog.CreateQueueInput{Name: "offering.new"})
	require.NoError(t, err)
	_, err = svc.CreateQueue(ctx, service.ID, catalog.CreateQueueInput{Name: "inactive", Type: "offering.new"})
	require.NoError(t, err)
	_, err = svc.SwitchQueueStatus(ctx, service.ID, active.ID, true)
	require.NoError(t, err)

	targets, err := svc.FindActiveQueues(ctx, "offering.new")
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, active.ID, targets[0].ID)
	assert.Equal(t, "https://svc.example.com/hook", targets[0].DeliveryEndpoint())
}

func TestService_QueueTypes(t *testing.T) {
	svc := catalog.NewService(memory.NewRepository(), []string{"a", "b"})
	types := svc.QueueTypes()
	assert.Equal(t, []string{"a", "b"}, types)

	types[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, svc.QueueTypes())
}
