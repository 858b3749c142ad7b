// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/parleyhq/parley/internal/app"
	"github.com/parleyhq/parley/internal/logging"
	"github.com/parleyhq/parley/internal/observability"
	"github.com/parleyhq/parley/internal/pubsub"
	"github.com/parleyhq/parley/internal/store"
	"github.com/parleyhq/parley/pkg/errutil"
)

const (
	readinessTimeout  = 2 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the GraphQL chat server",
		Long: `Start the chat server. Queries and mutations are served over HTTP at
/graphql; subscriptions use the graphql-transport-ws protocol at /graphql/ws.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}

	f := cmd.Flags()
	f.String("http-addr", defaultHTTPAddr, "GraphQL HTTP listen address")
	f.String("metrics-addr", defaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	f.String("log-format", defaultLogFormat, "log format (json or text)")
	f.String("log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	f.String("database-url", "", "PostgreSQL connection URL")
	f.String("redis-url", defaultRedisURL, "Redis URL for distributed events (empty = in-process only)")
	f.Duration("token-ttl", defaultTokenTTL, "lifetime of issued bearer tokens")
	f.Duration("publish-timeout", defaultPublishTimeout, "timeout for each distributed publish")
	f.Duration("shutdown-timeout", defaultShutdownTimeout, "grace period for in-flight requests on shutdown")
	f.Bool("auto-migrate", true, "apply pending database migrations at startup")

	return cmd
}

// runServeWithDeps starts the server with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *Config, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.PoolFactory == nil {
		deps.PoolFactory = func(ctx context.Context, url string, logger *slog.Logger) (Pool, error) {
			return store.OpenPool(ctx, url, store.PoolOptions{Logger: logger})
		}
	}
	if deps.MigratorFactory == nil {
		deps.MigratorFactory = func(url string) (AutoMigrator, error) {
			return store.NewMigrator(url)
		}
	}
	if deps.RedisFactory == nil {
		deps.RedisFactory = func(url string) (redis.UniversalClient, error) {
			return pubsub.NewRedisClient(url)
		}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker, logger)
		}
	}
	if deps.ListenerFactory == nil {
		deps.ListenerFactory = net.Listen
	}

	if err := cfg.Validate(); err != nil {
		return oops.With("operation", "validate configuration").Wrap(err)
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	level, _ := logging.ParseLevel(cfg.LogLevel) //nolint:errcheck // checked by Validate
	logger := logging.New(logging.Options{Version: version, Format: cfg.LogFormat, Level: level})
	slog.SetDefault(logger)

	logger.Info("starting parley",
		"http_addr", cfg.HTTPAddr,
		"log_format", cfg.LogFormat,
	)

	pool, err := deps.PoolFactory(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return oops.With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()
	logger.Info("connected to database")

	if cfg.AutoMigrate {
		if err := runAutoMigration(deps.MigratorFactory, cfg.DatabaseURL, logger); err != nil {
			return err
		}
	}

	var rdb redis.UniversalClient
	if cfg.RedisURL != "" {
		rdb, err = deps.RedisFactory(cfg.RedisURL)
		if err != nil {
			return oops.With("operation", "create redis client").Wrap(err)
		}
		defer func() {
			if closeErr := rdb.Close(); closeErr != nil {
				logger.Debug("error closing redis client", "error", closeErr)
			}
		}()
	} else {
		logger.Warn("redis disabled, events reach only this process")
	}

	// a is assigned before the observability server starts serving probes.
	var a *app.App
	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.MetricsAddr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.MetricsAddr, func() bool {
			pctx, cancel := context.WithTimeout(context.Background(), readinessTimeout)
			defer cancel()
			if pool.Ping(pctx) != nil {
				return false
			}
			// Redis only widens delivery; losing it is not fatal.
			if err := a.Degraded(pctx); err != nil {
				errutil.LogErrorContext(pctx, logger, "redis unreachable, events stay in this process", err)
			}
			return true
		}, logger)
		metrics = obsServer.Metrics()
	}

	// No exporter is registered; spans give log records their trace and span IDs.
	tracerProvider := sdktrace.NewTracerProvider()
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			logger.Debug("error shutting down tracer provider", "error", err)
		}
	}()

	a, err = app.New(app.Deps{
		DB:             pool,
		Redis:          rdb,
		JWTSecret:      cfg.JWTSecret,
		TokenTTL:       cfg.TokenTTL,
		PublishTimeout: cfg.PublishTimeout,
		Metrics:        metrics,
		Logger:         logger,
		TracerProvider: tracerProvider,
	})
	if err != nil {
		return oops.With("operation", "assemble application").Wrap(err)
	}

	listener, err := deps.ListenerFactory("tcp", cfg.HTTPAddr)
	if err != nil {
		return oops.Code("LISTEN_FAILED").With("addr", cfg.HTTPAddr).Wrap(err)
	}

	// Websocket sessions outlive Shutdown, so they hang off this context.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpServer := &http.Server{
		Handler:           a.Handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	httpErrChan := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErrChan <- err
		}
		close(httpErrChan)
	}()
	logger.Info("graphql server listening", "addr", listener.Addr().String())

	if obsServer != nil {
		obsErrChan, err := obsServer.Start()
		if err != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer shutdownCancel()
			if stopErr := httpServer.Shutdown(shutdownCtx); stopErr != nil {
				logger.Warn("failed to stop graphql server during cleanup", "error", stopErr)
			}
			return oops.With("operation", "start observability server").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability", logger)
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Parley started")

	var serveErr error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case err, ok := <-httpErrChan:
		if ok {
			serveErr = oops.Code("HTTP_SERVE_FAILED").Wrap(err)
			errutil.LogError(logger, "graphql server failed", serveErr)
		}
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping graphql server", "error", err)
	}
	cancel()

	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return serveErr
}

// runAutoMigration applies pending migrations and always closes the migrator.
func runAutoMigration(factory func(string) (AutoMigrator, error), url string, logger *slog.Logger) error {
	migrator, err := factory(url)
	if err != nil {
		return oops.Code("AUTO_MIGRATE_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			errutil.LogError(logger, "failed to close migrator", closeErr)
		}
	}()

	logger.Info("applying database migrations")
	if err := migrator.Up(); err != nil {
		return oops.Code("AUTO_MIGRATE_FAILED").With("operation", "apply migrations").Wrap(err)
	}
	logger.Info("database migrations applied")
	return nil
}

// monitorServerErrors cancels ctx when a server reports an error. It returns
// when the channel closes or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			errutil.LogError(logger, "server error, triggering shutdown", oops.With("server", serverName).Wrap(err))
			cancel()
		}
	case <-ctx.Done():
	}
}
