//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bissquit/notification-manager/internal/app"
	"github.com/bissquit/notification-manager/internal/config"
	"github.com/bissquit/notification-manager/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	testServer    *httptest.Server
	testValidator *testutil.OpenAPIValidator
	testDB        *pgxpool.Pool

	// inbox receives every webhook delivery made by the application.
	inbox       *webhookInbox
	receiverURL string
)

// OpenAPI spec path relative to the tests/integration directory.
const openAPISpecPath = "../../api/openapi/openapi.yaml"

// newTestClient creates a new test client with OpenAPI validation enabled.
func newTestClient(t *testing.T) *testutil.Client {
	t.Helper()
	client := testutil.NewClientWithValidator(testServer.URL, testValidator)
	client.SetT(t)
	return client
}

type delivery struct {
	Path           string                 `json:"-"`
	Kind           string                 `json:"kind"`
	SubscriptionID string                 `json:"subscriptionId"`
	UserID         string                 `json:"userId"`
	QueueID        string                 `json:"queueId"`
	Category       string                 `json:"category"`
	Message        map[string]interface{} `json:"message"`
}

type webhookInbox struct {
	mu         sync.Mutex
	deliveries []delivery
}

func (b *webhookInbox) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var d delivery
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	d.Path = r.URL.Path

	b.mu.Lock()
	b.deliveries = append(b.deliveries, d)
	b.mu.Unlock()

	if strings.HasPrefix(r.URL.Path, "/broken") {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// forCategory returns deliveries recorded for category.
func (b *webhookInbox) forCategory(category string) []delivery {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []delivery
	for _, d := range b.deliveries {
		if d.Category == category {
			out = append(out, d)
		}
	}
	return out
}

func TestMain(m *testing.M) {
	ctx := context.Background()

	pgContainer, err := testutil.NewPostgresContainer(ctx)
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}

	inbox = &webhookInbox{}
	receiver := httptest.NewServer(inbox)

	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "0"
	cfg.Server.MetricsPort = "0"
	cfg.Storage.Driver = config.DriverPostgres
	cfg.Storage.AutoMigrate = true
	cfg.Database.URL = pgContainer.ConnectionString
	cfg.Database.MaxOpenConns = 5
	cfg.Database.ConnectTimeout = 30 * time.Second
	cfg.Database.ConnectAttempts = 3
	cfg.Log.Level = "error"
	cfg.Delivery.Sender = config.SenderWebhook
	cfg.Delivery.SubscriberURL = receiver.URL + "/users/{user_id}/inbox"
	cfg.Delivery.Timeout = 2 * time.Second

	application, err := app.New(&cfg)
	if err != nil {
		log.Fatalf("create app: %v", err)
	}

	// Direct DB connection for tests that inspect storage
	testDB, err = pgxpool.New(ctx, pgContainer.ConnectionString)
	if err != nil {
		log.Fatalf("create test db pool: %v", err)
	}

	testServer = httptest.NewServer(application.Router())

	testValidator, err = testutil.LoadOpenAPIValidator(openAPISpecPath)
	if err != nil {
		log.Fatalf("load OpenAPI validator: %v", err)
	}

	receiverURL = receiver.URL

	code := m.Run()

	testServer.Close()
	receiver.Close()
	testDB.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown app: %v", err)
	}
	if err := pgContainer.Terminate(ctx); err != nil {
		log.Printf("terminate postgres: %v", err)
	}

	os.Exit(code)
}
