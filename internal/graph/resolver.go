// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package graph

import (
	"context"
	_ "embed"
	"log/slog"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/parleyhq/parley/internal/chat"
	"github.com/parleyhq/parley/internal/pubsub"
)

//go:embed schema.graphql
var schemaSDL string

// MaxQueryDepth bounds nested selections such as user.messages.room.messages.
const MaxQueryDepth = 10

// Recorder receives resolver outcomes. *observability.Metrics satisfies it.
type Recorder interface {
	RecordOperation(operation, outcome string)
	SubscriptionOpened(subscription string) func()
}

type nopRecorder struct{}

func (nopRecorder) RecordOperation(string, string)   {}
func (nopRecorder) SubscriptionOpened(string) func() { return func() {} }

// tracerName identifies spans started by the GraphQL layer.
const tracerName = "parley/graph"

// Config wires a Resolver. Nil Metrics, Logger and TracerProvider fall back to
// a no-op recorder, slog.Default and the global OpenTelemetry provider.
type Config struct {
	Service        *chat.Service
	Broadcaster    *pubsub.Broadcaster
	Metrics        Recorder
	Logger         *slog.Logger
	TracerProvider trace.TracerProvider
}

// Resolver is the root resolver for queries, mutations and subscriptions.
type Resolver struct {
	svc     *chat.Service
	events  *pubsub.Broadcaster
	metrics Recorder
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewResolver validates cfg and returns a root resolver.
func NewResolver(cfg Config) (*Resolver, error) {
	if cfg.Service == nil {
		return nil, oops.Code("GRAPH_INVALID_CONFIG").Errorf("chat service is required")
	}
	if cfg.Broadcaster == nil {
		return nil, oops.Code("GRAPH_INVALID_CONFIG").Errorf("broadcaster is required")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = nopRecorder{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	return &Resolver{
		svc:     cfg.Service,
		events:  cfg.Broadcaster,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
		tracer:  cfg.TracerProvider.Tracer(tracerName),
	}, nil
}

// NewSchema parses the embedded SDL against r.
func NewSchema(r *Resolver) (*graphql.Schema, error) {
	schema, err := graphql.ParseSchema(schemaSDL, r,
		graphql.MaxDepth(MaxQueryDepth),
		graphql.Logger(panicLogger{logger: r.logger}),
	)
	if err != nil {
		return nil, oops.Code("GRAPH_SCHEMA_INVALID").Wrap(err)
	}
	return schema, nil
}

// panicLogger routes recovered resolver panics to slog.
type panicLogger struct {
	logger *slog.Logger
}

func (l panicLogger) LogPanic(ctx context.Context, value any) {
	l.logger.ErrorContext(ctx, "graphql resolver panic", "panic", value)
}
