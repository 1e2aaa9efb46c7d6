package notifications_test

import (
	"context"
	"strings"
	"testing"

	"github.com/bissquit/notification-manager/internal/notifications"
	"github.com/bissquit/notification-manager/internal/notifications/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(sender notifications.Sender) *notifications.Service {
	repo := memory.NewRepository()
	d := notifications.NewDispatcher(notifications.DispatcherConfig{}, repo, nil, sender)
	return notifications.NewService(repo, d)
}

func TestService_CreateSubscription(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&mockSender{})

	sub, err := svc.CreateSubscription(ctx, "u1", notifications.CreateSubscriptionInput{Category: "offers"})
	require.NoError(t, err)
	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, "u1", sub.UserID)
	assert.Equal(t, "offers", sub.Category)
	assert.True(t, sub.Active)

	fetched, err := svc.GetSubscription(ctx, "u1", sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub, fetched)

	_, err = svc.CreateSubscription(ctx, "u1", notifications.CreateSubscriptionInput{Category: "offers"})
	assert.ErrorIs(t, err, notifications.ErrSubscriptionExists)

	_, err = svc.CreateSubscription(ctx, "u2", notifications.CreateSubscriptionInput{Category: "offers"})
	assert.NoError(t, err)
}

func TestService_CreateSubscription_Incomplete(t *testing.T) {
	svc := newTestService(&mockSender{})

	for _, category := range []string{"", "   "} {
		_, err := svc.CreateSubscription(context.Background(), "u1", notifications.CreateSubscriptionInput{Category: category})
		assert.ErrorIs(t, err, notifications.ErrIncompleteBody)
	}
}

func TestService_CreateSubscription_UserIDTooLong(t *testing.T) {
	svc := newTestService(&mockSender{})

	_, err := svc.CreateSubscription(context.Background(), strings.Repeat("u", 256), notifications.CreateSubscriptionInput{Category: "offers"})
	assert.ErrorIs(t, err, notifications.ErrIncompleteBody)

	sub, err := svc.CreateSubscription(context.Background(), strings.Repeat("u", 255), notifications.CreateSubscriptionInput{Category: "offers"})
	require.NoError(t, err)
	assert.Len(t, sub.UserID, 255)
}

func TestService_DeleteSubscription_Twice(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&mockSender{})

	sub, err := svc.CreateSubscription(ctx, "u1", notifications.CreateSubscriptionInput{Category: "offers"})
	require.NoError(t, err)

	deleted, err := svc.DeleteSubscription(ctx, "u1", sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, deleted.ID)

	_, err = svc.DeleteSubscription(ctx, "u1", sub.ID)
	assert.ErrorIs(t, err, notifications.ErrSubscriptionNotFound)
}

func TestService_SwitchSubscriptionStatus(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&mockSender{})

	sub, err := svc.CreateSubscription(ctx, "u1", notifications.CreateSubscriptionInput{Category: "offers"})
	require.NoError(t, err)

	for range 2 {
		updated, err := svc.SwitchSubscriptionStatus(ctx, "u1", sub.ID, false)
		require.NoError(t, err)
		assert.False(t, updated.Active)
	}

	updated, err := svc.SwitchSubscriptionStatus(ctx, "u1", sub.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.Active)

	_, err = svc.SwitchSubscriptionStatus(ctx, "u1", "missing", true)
	assert.ErrorIs(t, err, notifications.ErrSubscriptionNotFound)
}

func TestService_ListSubscriptions(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&mockSender{})

	_, err := svc.CreateSubscription(ctx, "u1", notifications.CreateSubscriptionInput{Category: "offers"})
	require.NoError(t, err)
	_, err = svc.CreateSubscription(ctx, "u1", notifications.CreateSubscriptionInput{Category: "news"})
	require.NoError(t, err)
	_, err = svc.CreateSubscription(ctx, "u2", notifications.CreateSubscriptionInput{Category: "news"})
	require.NoError(t, err)

	all, err := svc.ListSubscriptions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := svc.ListUserSubscriptions(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	none, err := svc.ListUserSubscriptions(ctx, "u9")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestService_SearchUsersBySubscription(t *testing.T) {
	ctx := context.Background()
	sender := &mockSender{}
	svc := newTestService(sender)

	_, err := svc.CreateSubscription(ctx, "u1", notifications.CreateSubscriptionInput{Category: "weather"})
	require.NoError(t, err)
	u2, err := svc.CreateSubscription(ctx, "u2", notifications.CreateSubscriptionInput{Category: "weather"})
	require.NoError(t, err)
	_, err = svc.SwitchSubscriptionStatus(ctx, "u2", u2.ID, false)
	require.NoError(t, err)
	_, err = svc.CreateSubscription(ctx, "u3", notifications.CreateSubscriptionInput{Category: "news"})
	require.NoError(t, err)

	report, err := svc.SearchUsersBySubscription(ctx, "weather", map[string]interface{}{"category": "weather"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Delivered)
	assert.Equal(t, []string{"u1"}, sender.users())
}
