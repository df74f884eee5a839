// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Pitchside Contributors

// Package store provides the PostgreSQL connection pool and schema migrations.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Connection retry defaults.
const (
	DefaultConnectAttempts = 5
	DefaultConnectBackoff  = 500 * time.Millisecond
	maxConnectBackoff      = 10 * time.Second
)

// ConnectOptions tunes Connect. Zero values select the defaults.
type ConnectOptions struct {
	MaxAttempts    uint64
	InitialBackoff time.Duration
	Logger         *slog.Logger
}

// Connect opens a pool for databaseURL and pings it, retrying with
// exponential backoff while the database is still starting up. A malformed
// URL fails immediately.
func Connect(ctx context.Context, databaseURL string, opts ConnectOptions) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, oops.Code("DB_CONFIG_INVALID").Errorf("database URL is required")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}

	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = DefaultConnectAttempts
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = DefaultConnectBackoff
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	backoff := retry.NewExponential(opts.InitialBackoff)
	backoff = retry.WithCappedDuration(maxConnectBackoff, backoff)
	backoff = retry.WithMaxRetries(opts.MaxAttempts-1, backoff)

	var (
		pool    *pgxpool.Pool
		attempt int
	)
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		p, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return retry.RetryableError(err)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			opts.Logger.WarnContext(ctx, "database not reachable yet",
				"attempt", attempt,
				"max_attempts", opts.MaxAttempts,
				"error", err)
			return retry.RetryableError(err)
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "connect to database").
			With("attempts", attempt).
			Wrap(err)
	}

	opts.Logger.InfoContext(ctx, "connected to database", "attempts", attempt)
	return pool, nil
}
