// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Pitchside Contributors

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/pitchside/pitchside/internal/auth"
	"github.com/pitchside/pitchside/internal/auth/postgres"
	"github.com/pitchside/pitchside/internal/config"
	"github.com/pitchside/pitchside/internal/httpapi"
	"github.com/pitchside/pitchside/internal/logging"
	"github.com/pitchside/pitchside/internal/observability"
	"github.com/pitchside/pitchside/internal/store"
)

const (
	serviceName = "pitchside"
	bannerFont  = "cybermedium"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the HTTP API server. Sessions are held in memory and are
lost when the process stops.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}
}

// runServeWithDeps starts the API server with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	deps = deps.withDefaults()
	if ctx == nil {
		ctx = context.Background()
	}

	logger := logging.SetDefault(serviceName, version, cfg.Log.Options())
	printBanner(cmd.OutOrStdout())

	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").
			With("key", "database.url").
			Errorf("database url is required (database.url, PITCHSIDE_DATABASE__URL or DATABASE_URL)")
	}

	if cfg.Database.AutoMigrate {
		if err := runAutoMigrate(deps.MigratorFactory, cfg.Database.URL); err != nil {
			return err
		}
	}

	db, err := deps.DatabaseFactory(ctx, cfg.Database.URL, store.ConnectOptions{
		MaxAttempts: cfg.Database.ConnectAttempts,
		Logger:      logger,
	})
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()
	logger.Info("connected to database")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var ready atomic.Bool
	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, ready.Load)
		metrics = obsServer.Metrics()
	}

	sessionOpts := []auth.SessionStoreOption{
		auth.WithTTL(cfg.Session.TTL()),
		auth.WithSessionLogger(logger),
	}
	var serviceOpts []auth.ServiceOption
	var apiOpts []httpapi.Option
	if metrics != nil {
		sessionOpts = append(sessionOpts, auth.WithSessionMetrics(metrics))
		serviceOpts = append(serviceOpts, auth.WithAuthMetrics(metrics))
		apiOpts = append(apiOpts, httpapi.WithRequestObserver(metrics))
	}

	sessions := auth.NewSessionStore(sessionOpts...)
	defer sessions.Close()
	go sessions.RunSweeper(ctx, cfg.Session.SweepInterval)

	repo := postgres.NewUserRepository(db)
	hasher := auth.NewArgon2idHasher()
	authService, err := auth.NewAuthServiceWithLogger(repo, sessions, hasher, logger, serviceOpts...)
	if err != nil {
		return oops.Code("SERVE_INIT_FAILED").With("component", "auth service").Wrap(err)
	}
	users, err := auth.NewUserService(repo, authService, hasher, logger)
	if err != nil {
		return oops.Code("SERVE_INIT_FAILED").With("component", "user service").Wrap(err)
	}

	apiOpts = append(apiOpts, httpapi.WithLogger(logger), httpapi.WithPinger(db))
	api, err := httpapi.New(authService, users, httpapi.ConfigFrom(cfg, apiVersion()), apiOpts...)
	if err != nil {
		return oops.Code("SERVE_INIT_FAILED").With("component", "http api").Wrap(err)
	}

	listener, err := deps.ListenerFactory("tcp", cfg.Server.Addr)
	if err != nil {
		return oops.Code("SERVE_LISTEN_FAILED").With("addr", cfg.Server.Addr).Wrap(err)
	}
	httpServer := &http.Server{
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if serveErr := httpServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()
	logger.Info("API server listening",
		"addr", listener.Addr().String(),
		"token_location", cfg.Session.TokenLocation,
		"session_ttl", cfg.Session.TTL().String(),
	)

	if obsServer != nil {
		obsErrChan, startErr := obsServer.Start()
		if startErr != nil {
			shutdownServer(httpServer, cfg.Server.ShutdownTimeout)
			return oops.Code("SERVE_OBSERVABILITY_FAILED").With("addr", cfg.Metrics.Addr).Wrap(startErr)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	ready.Store(true)

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Pitchside API started")

	var runErr error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case serveErr := <-errChan:
		runErr = oops.Code("SERVE_FAILED").With("operation", "serve http").Wrap(serveErr)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	ready.Store(false)
	logger.Info("shutting down...")
	shutdownServer(httpServer, cfg.Server.ShutdownTimeout)

	if obsServer != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer stopCancel()
		if stopErr := obsServer.Stop(stopCtx); stopErr != nil {
			logger.Warn("error stopping observability server", "error", stopErr)
		}
	}

	logger.Info("shutdown complete", "sessions_dropped", sessions.Len())
	return runErr
}

// runAutoMigrate applies pending migrations before the server starts.
func runAutoMigrate(factory func(string) (AutoMigrator, error), databaseURL string) error {
	slog.Info("running database migrations")
	migrator, err := factory(databaseURL)
	if err != nil {
		return oops.Code("AUTO_MIGRATION_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			slog.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.Code("AUTO_MIGRATION_FAILED").With("operation", "apply migrations").Wrap(err)
	}
	slog.Info("database migrations complete")
	return nil
}

func shutdownServer(srv *http.Server, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Warn("error stopping API server", "error", err)
	}
}

// monitorServerErrors cancels ctx when a background server fails.
// It exits when either an error is received, the channel is closed, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}

// apiVersion is the version GET / reports. Development builds report the
// API contract version.
func apiVersion() string {
	if version == "dev" {
		return httpapi.DefaultVersion
	}
	return version
}

func printBanner(w io.Writer) {
	banner := figure.NewFigure("Pitchside", bannerFont, true)
	_, _ = fmt.Fprintln(w, banner.String()) //nolint:errcheck // best effort
}
