// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/bissquit/notification-manager/api/openapi"
	"github.com/bissquit/notification-manager/internal/catalog"
	catalogmemory "github.com/bissquit/notification-manager/internal/catalog/memory"
	catalogpostgres "github.com/bissquit/notification-manager/internal/catalog/postgres"
	"github.com/bissquit/notification-manager/internal/config"
	"github.com/bissquit/notification-manager/internal/notifications"
	notificationsmemory "github.com/bissquit/notification-manager/internal/notifications/memory"
	notificationspostgres "github.com/bissquit/notification-manager/internal/notifications/postgres"
	"github.com/bissquit/notification-manager/internal/notifications/webhook"
	"github.com/bissquit/notification-manager/internal/pkg/ctxlog"
	"github.com/bissquit/notification-manager/internal/pkg/httputil"
	"github.com/bissquit/notification-manager/internal/pkg/jwtauth"
	"github.com/bissquit/notification-manager/internal/pkg/metrics"
	"github.com/bissquit/notification-manager/internal/pkg/postgres"
	"github.com/bissquit/notification-manager/internal/version"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *pgxpool.Pool // nil with the memory driver
	dbCollector   *metrics.DBPoolCollector
	server        *http.Server
	metricsServer *http.Server
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)
	slog.SetDefault(logger)

	app := &App{
		config: cfg,
		logger: logger,
	}

	if cfg.Storage.Driver == config.DriverPostgres {
		db, err := connectDatabase(cfg)
		if err != nil {
			return nil, err
		}
		app.db = db

		app.dbCollector = metrics.NewDBPoolCollector(db)
		if err := prometheus.Register(app.dbCollector); err != nil {
			logger.Warn("database pool metrics not registered", "error", err)
			app.dbCollector = nil
		}
	}

	router := app.setupRouter()

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("application configured",
		"storage", cfg.Storage.Driver,
		"sender", cfg.Delivery.Sender,
		"auth", cfg.Auth.Enabled,
	)

	return app, nil
}

func connectDatabase(cfg *config.Config) (*pgxpool.Pool, error) {
	if cfg.Storage.AutoMigrate {
		if err := postgres.Migrate(cfg.Database.URL, postgres.DirectionUp); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	defer cancel()

	db, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

// Run starts the HTTP servers.
func (a *App) Run() error {
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
	)

	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	shutdown := func(name string, srv *http.Server) {
		defer wg.Done()
		if err := srv.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown %s: %w", name, err))
			mu.Unlock()
		}
	}

	wg.Add(2)
	go shutdown("server", a.server)
	go shutdown("metrics server", a.metricsServer)
	wg.Wait()

	if a.dbCollector != nil {
		prometheus.Unregister(a.dbCollector)
	}
	if a.db != nil {
		a.db.Close()
	}

	return errors.Join(errs...)
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

func (a *App) repositories() (catalog.Repository, notifications.Repository) {
	if a.db == nil {
		return catalogmemory.NewRepository(), notificationsmemory.NewRepository()
	}
	return catalogpostgres.NewRepository(a.db), notificationspostgres.NewRepository(a.db)
}

func (a *App) sender() notifications.Sender {
	if a.config.Delivery.Sender == config.SenderWebhook {
		return webhook.NewSender(webhook.Config{
			Timeout:   a.config.Delivery.Timeout,
			RateLimit: a.config.Delivery.RateLimit,
			Burst:     a.config.Delivery.Burst,
			UserAgent: "notification-manager/" + version.Version,
		})
	}
	return notifications.NewLogSender(a.logger)
}

func (a *App) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/x-yaml")
		_, _ = w.Write(openapi.Document)
	})

	r.Get("/docs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>Notification Manager API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
        SwaggerUIBundle({
            url: "/api/openapi.yaml",
            dom_id: '#swagger-ui',
            presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
            layout: "BaseLayout"
        });
    </script>
</body>
</html>`))
	})

	catalogRepo, notificationsRepo := a.repositories()

	catalogService := catalog.NewService(catalogRepo, a.config.Catalog.QueueTypes)
	catalogHandler := catalog.NewHandler(catalogService)

	dispatcher := notifications.NewDispatcher(notifications.DispatcherConfig{
		Concurrency:     a.config.Delivery.Concurrency,
		Timeout:         a.config.Delivery.Timeout,
		DispatchTimeout: a.config.Delivery.DispatchTimeout,
		SubscriberURL:   a.config.Delivery.SubscriberURL,
	}, notificationsRepo, catalogService, a.sender())
	notificationsService := notifications.NewService(notificationsRepo, dispatcher)
	notificationsHandler := notifications.NewHandler(notificationsService)

	r.Route("/api/v1", func(r chi.Router) {
		if a.config.Auth.Enabled {
			r.Use(httputil.AuthMiddleware(jwtauth.New(a.config.Auth.SecretKey, a.config.Auth.Issuer)))
		}

		catalogHandler.RegisterRoutes(r)
		notificationsHandler.RegisterRoutes(r)
	})

	return r
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	if a.db == nil {
		httputil.Text(w, http.StatusOK, "OK")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, version.Get())
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
