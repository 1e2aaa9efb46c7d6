//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/bissquit/notification-manager/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type queueResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Endpoint *string `json:"endpoint"`
	Active   bool    `json:"active"`
}

type serviceResponse struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	MarketID *string         `json:"marketId"`
	Endpoint *string         `json:"endpoint"`
	Queues   []queueResponse `json:"queues"`
}

type subscriptionResponse struct {
	ID       string `json:"id"`
	UserID   string `json:"userId"`
	Category string `json:"category"`
	Active   bool   `json:"active"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// uniqueName returns prefix with a random suffix so tests sharing the
// database do not collide.
func uniqueName(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

// createTestService registers a service and removes it when the test ends.
func createTestService(t *testing.T, client *testutil.Client, payload map[string]interface{}) serviceResponse {
	t.Helper()

	if _, ok := payload["name"]; !ok {
		payload["name"] = uniqueName("svc")
	}

	resp, err := client.POST("/api/v1/services", payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var service serviceResponse
	testutil.DecodeJSON(t, resp, &service)

	t.Cleanup(func() {
		resp, err := testutil.NewClient(testServer.URL).DELETE("/api/v1/services/" + service.ID)
		if err == nil {
			_ = resp.Body.Close()
		}
	})

	return service
}

// createTestQueue creates a queue and optionally activates it.
func createTestQueue(t *testing.T, client *testutil.Client, serviceID string, payload map[string]interface{}, activate bool) queueResponse {
	t.Helper()

	resp, err := client.POST("/api/v1/services/"+serviceID+"/queues", payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var queue queueResponse
	testutil.DecodeJSON(t, resp, &queue)

	if activate {
		resp, err = client.PATCH("/api/v1/services/"+serviceID+"/queues/"+queue.ID+"/activate", nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		testutil.DecodeJSON(t, resp, &queue)
	}

	return queue
}

// subscribe creates a subscription for userID.
func subscribe(t *testing.T, client *testutil.Client, userID, category string) subscriptionResponse {
	t.Helper()

	resp, err := client.POST("/api/v1/users/"+userID+"/subscriptions", map[string]string{
		"category": category,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sub subscriptionResponse
	testutil.DecodeJSON(t, resp, &sub)
	return sub
}

// notify posts payload to /notify and expects success.
func notify(t *testing.T, client *testutil.Client, payload map[string]interface{}) {
	t.Helper()

	resp, err := client.POST("/api/v1/notify", payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
}
