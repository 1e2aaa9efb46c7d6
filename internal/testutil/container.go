package testutil

import (
	"context"
	"fmt"
	"time"

	pgutil "github.com/bissquit/notification-manager/internal/pkg/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const postgresImage = "postgres:16-alpine"

// PostgresContainer is a disposable database for integration tests.
type PostgresContainer struct {
	*postgres.PostgresContainer
	ConnectionString string
}

// NewPostgresContainer starts an empty database named notifications.
func NewPostgresContainer(ctx context.Context) (*PostgresContainer, error) {
	container, err := postgres.Run(ctx,
		postgresImage,
		postgres.WithDatabase("notifications"),
		postgres.WithUsername("nm"),
		postgres.WithPassword("nm"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("get connection string: %w", err)
	}

	return &PostgresContainer{
		PostgresContainer: container,
		ConnectionString:  connStr,
	}, nil
}

// NewMigratedPostgres starts a database, applies the schema and opens a pool.
// The caller closes the pool and terminates the container.
func NewMigratedPostgres(ctx context.Context) (*PostgresContainer, *pgxpool.Pool, error) {
	pg, err := NewPostgresContainer(ctx)
	if err != nil {
		return nil, nil, err
	}

	if err := pgutil.Migrate(pg.ConnectionString, pgutil.DirectionUp); err != nil {
		_ = pg.Terminate(ctx)
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, pg.ConnectionString)
	if err != nil {
		_ = pg.Terminate(ctx)
		return nil, nil, fmt.Errorf("create pool: %w", err)
	}

	return pg, pool, nil
}
