// Command notification-manager runs the notification subscription API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bissquit/notification-manager/internal/app"
	"github.com/bissquit/notification-manager/internal/config"
	"github.com/bissquit/notification-manager/internal/pkg/jwtauth"
	"github.com/bissquit/notification-manager/internal/pkg/postgres"
	"github.com/bissquit/notification-manager/internal/version"
	"github.com/urfave/cli/v3"
)

func main() {
	var configPath string

	cmd := &cli.Command{
		Name:    "notification-manager",
		Usage:   "Manage notification queues and user subscriptions",
		Version: version.Get().String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to YAML config file",
				Sources:     cli.EnvVars("NM_CONFIG"),
				Destination: &configPath,
			},
		},
		Commands: []*cli.Command{
			serveCommand(&configPath),
			migrateCommand(&configPath),
			tokenCommand(&configPath),
		},
		DefaultCommand: "serve",
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func serveCommand(configPath *string) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP API and metrics servers",
		Action: func(ctx context.Context, _ *cli.Command) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			application, err := app.New(cfg)
			if err != nil {
				return fmt.Errorf("create app: %w", err)
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- application.Run()
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return err
				}
			case <-ctx.Done():
				slog.Info("shutdown signal received")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()

			return application.Shutdown(shutdownCtx)
		},
	}
}

func migrateCommand(configPath *string) *cli.Command {
	run := func(direction postgres.Direction) cli.ActionFunc {
		return func(_ context.Context, _ *cli.Command) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return errors.New("database.url is not configured")
			}
			return postgres.Migrate(cfg.Database.URL, direction)
		}
	}

	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply or roll back database schema migrations",
		Commands: []*cli.Command{
			{
				Name:   "up",
				Usage:  "Apply all pending migrations",
				Action: run(postgres.DirectionUp),
			},
			{
				Name:   "down",
				Usage:  "Roll back all migrations",
				Action: run(postgres.DirectionDown),
			},
		},
	}
}

func tokenCommand(configPath *string) *cli.Command {
	var (
		subject string
		ttl     time.Duration
	)

	return &cli.Command{
		Name:  "token",
		Usage: "Issue a bearer token for the API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "subject",
				Usage:       "token subject",
				Required:    true,
				Destination: &subject,
			},
			&cli.DurationFlag{
				Name:        "ttl",
				Usage:       "token lifetime",
				Value:       24 * time.Hour,
				Destination: &ttl,
			},
		},
		Action: func(_ context.Context, c *cli.Command) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.SecretKey == "" {
				return errors.New("auth.secret_key is not configured")
			}

			token, err := jwtauth.New(cfg.Auth.SecretKey, cfg.Auth.Issuer).Issue(subject, ttl)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(c.Root().Writer, token)
			return err
		},
	}
}
