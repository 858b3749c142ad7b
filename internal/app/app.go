// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

// Package app assembles the chat service, event fan-out and GraphQL
// transport into a single http.Handler.
package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel/trace"

	"github.com/parleyhq/parley/internal/auth"
	"github.com/parleyhq/parley/internal/chat"
	"github.com/parleyhq/parley/internal/chat/postgres"
	"github.com/parleyhq/parley/internal/graph"
	"github.com/parleyhq/parley/internal/observability"
	"github.com/parleyhq/parley/internal/pubsub"
)

// Deps are the process-wide collaborators. DB and JWTSecret are required.
type Deps struct {
	DB             postgres.DB
	Redis          redis.UniversalClient
	Hasher         auth.PasswordHasher
	JWTSecret      string
	TokenTTL       time.Duration
	PublishTimeout time.Duration
	Metrics        *observability.Metrics
	Logger         *slog.Logger
	WSOptions      []graph.WSOption
	TracerProvider trace.TracerProvider
}

// App is the assembled application.
type App struct {
	Handler     http.Handler
	Service     *chat.Service
	Broadcaster *pubsub.Broadcaster

	redisPub *pubsub.RedisPublisher
}

// New wires d into an App. Without Redis, events are only delivered to
// subscribers in this process.
func New(d Deps) (*App, error) {
	if d.DB == nil {
		return nil, oops.Code("APP_INVALID_CONFIG").Errorf("database is required")
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Hasher == nil {
		d.Hasher = auth.NewArgon2idHasher()
	}

	tokens, err := auth.NewTokenManager(d.JWTSecret, d.TokenTTL)
	if err != nil {
		return nil, oops.With("operation", "create token manager").Wrap(err)
	}

	broadcaster := pubsub.NewBroadcaster(d.Logger.With("component", "broadcaster"))
	opts := []pubsub.FanoutOption{
		pubsub.WithTimeout(d.PublishTimeout),
		pubsub.WithLogger(d.Logger.With("component", "fanout")),
	}
	if d.Metrics != nil {
		opts = append(opts, pubsub.WithRecorder(d.Metrics))
	}
	var remote pubsub.RemotePublisher
	var redisPub *pubsub.RedisPublisher
	if d.Redis != nil {
		redisPub = pubsub.NewRedisPublisher(d.Redis)
		remote = redisPub
	}
	fanout := pubsub.NewFanout(remote, broadcaster, opts...)

	svc, err := chat.NewService(postgres.NewStore(d.DB), d.Hasher, tokens, fanout, d.Logger.With("component", "chat"))
	if err != nil {
		return nil, oops.With("operation", "create chat service").Wrap(err)
	}

	cfg := graph.Config{
		Service:        svc,
		Broadcaster:    broadcaster,
		Logger:         d.Logger.With("component", "graphql"),
		TracerProvider: d.TracerProvider,
	}
	if d.Metrics != nil {
		cfg.Metrics = d.Metrics
	}
	resolver, err := graph.NewResolver(cfg)
	if err != nil {
		return nil, oops.With("operation", "create resolver").Wrap(err)
	}
	schema, err := graph.NewSchema(resolver)
	if err != nil {
		return nil, oops.With("operation", "parse schema").Wrap(err)
	}

	authn := auth.NewAuthenticator(tokens, d.Logger.With("component", "auth"))
	return &App{
		Handler:     graph.NewRouter(schema, authn, d.Logger, d.WSOptions...),
		Service:     svc,
		Broadcaster: broadcaster,
		redisPub:    redisPub,
	}, nil
}

// Degraded reports why events cannot leave this process, or nil when the
// distributed channel is reachable or not configured.
func (a *App) Degraded(ctx context.Context) error {
	if a.redisPub == nil {
		return nil
	}
	return a.redisPub.Ping(ctx)
}
