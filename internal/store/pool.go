// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

// Package store owns the PostgreSQL connection pool and schema migrations.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Default connect retry policy.
const (
	DefaultConnectAttempts = 10
	DefaultConnectBackoff  = 250 * time.Millisecond
	maxConnectBackoff      = 5 * time.Second
)

// PoolOptions controls OpenPool. Zero values select the defaults.
type PoolOptions struct {
	Attempts uint64
	Backoff  time.Duration
	Logger   *slog.Logger
}

// OpenPool creates a pgx pool for databaseURL and pings it, retrying with
// capped exponential backoff while the database comes up.
func OpenPool(ctx context.Context, databaseURL string, opts PoolOptions) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, oops.Code("DATABASE_URL_REQUIRED").Errorf("database url is required")
	}
	if opts.Attempts == 0 {
		opts.Attempts = DefaultConnectAttempts
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultConnectBackoff
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DATABASE_URL_INVALID").Wrap(err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DATABASE_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	backoff := retry.WithMaxRetries(opts.Attempts-1,
		retry.WithCappedDuration(maxConnectBackoff, retry.NewExponential(opts.Backoff)))
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := pool.Ping(ctx); err != nil {
			opts.Logger.Warn("database not ready", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DATABASE_CONNECT_FAILED").
			With("operation", "ping").
			With("attempts", attempt).
			Wrap(err)
	}
	return pool, nil
}
