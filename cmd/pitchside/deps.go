package main

import (
	"context"
	"log/slog"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pitchside/pitchside/internal/observability"
	"github.com/pitchside/pitchside/internal/store"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// DatabaseFactory opens the connection pool.
	// Default: store.Connect
	DatabaseFactory func(ctx context.Context, url string, opts store.ConnectOptions) (Database, error)

	// MigratorFactory creates a migrator for auto-migration.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (AutoMigrator, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// ListenerFactory creates the API listener.
	// Default: net.Listen
	ListenerFactory func(network, address string) (net.Listener, error)
}

// Database wraps the methods used from *pgxpool.Pool.
type Database interface {
	Ping(ctx context.Context) error
	Close()
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AutoMigrator wraps the methods used from store.Migrator at startup.
type AutoMigrator interface {
	Up() error
	Close() error
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	if d == nil {
		d = &ServeDeps{}
	}
	if d.DatabaseFactory == nil {
		d.DatabaseFactory = func(ctx context.Context, url string, opts store.ConnectOptions) (Database, error) {
			pool, err := store.Connect(ctx, url, opts)
			if err != nil {
				return nil, err
			}
			return pool, nil
		}
	}
	if d.MigratorFactory == nil {
		d.MigratorFactory = func(url string) (AutoMigrator, error) {
			m, err := store.NewMigrator(url)
			if err != nil {
				return nil, err
			}
			return m, nil
		}
	}
	if d.ObservabilityServerFactory == nil {
		d.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker,
				observability.WithLogger(slog.Default()),
				observability.WithBuildInfo(version, commit))
		}
	}
	if d.ListenerFactory == nil {
		d.ListenerFactory = net.Listen
	}
	return d
}
