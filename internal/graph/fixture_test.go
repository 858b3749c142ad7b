// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package graph_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/internal/auth"
	"github.com/parleyhq/parley/internal/chat"
	"github.com/parleyhq/parley/internal/chat/chattest"
	"github.com/parleyhq/parley/internal/graph"
	"github.com/parleyhq/parley/internal/pubsub"
)

const testPassword = "Passw0rd"

type opRecorder struct {
	mu   sync.Mutex
	ops  map[string]int
	open map[string]int
}

func newOpRecorder() *opRecorder {
	return &opRecorder{ops: map[string]int{}, open: map[string]int{}}
}

func (r *opRecorder) RecordOperation(operation, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[operation+"/"+outcome]++
}

func (r *opRecorder) SubscriptionOpened(name string) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open[name]++
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.open[name]--
	}
}

func (r *opRecorder) count(operation, outcome string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ops[operation+"/"+outcome]
}

func (r *opRecorder) active(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.open[name]
}

type fixture struct {
	schema  *graphql.Schema
	svc     *chat.Service
	mem     *chattest.Memory
	events  *pubsub.Broadcaster
	tokens  *auth.TokenManager
	metrics *opRecorder
	logs    *syncWriter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logs := &syncWriter{}
	logger := slog.New(slog.NewJSONHandler(logs, nil))

	mem := chattest.NewMemory()
	tokens, err := auth.NewTokenManager("graph-test-secret", time.Hour)
	require.NoError(t, err)
	broadcaster := pubsub.NewBroadcaster(logger)
	svc, err := chat.NewService(mem.Store(), chattest.PlainHasher{}, tokens,
		pubsub.NewFanout(nil, broadcaster, pubsub.WithLogger(logger)), logger)
	require.NoError(t, err)

	metrics := newOpRecorder()
	resolver, err := graph.NewResolver(graph.Config{
		Service:     svc,
		Broadcaster: broadcaster,
		Metrics:     metrics,
		Logger:      logger,
	})
	require.NoError(t, err)
	schema, err := graph.NewSchema(resolver)
	require.NoError(t, err)

	return &fixture{
		schema:  schema,
		svc:     svc,
		mem:     mem,
		events:  broadcaster,
		tokens:  tokens,
		metrics: metrics,
		logs:    logs,
	}
}

// user registers name and returns its identity.
func (f *fixture) user(t *testing.T, name string) *auth.Identity {
	t.Helper()
	u, err := f.svc.CreateUser(context.Background(), name, testPassword)
	require.NoError(t, err)
	return &auth.Identity{UserID: u.ID}
}

func (f *fixture) room(t *testing.T, owner *auth.Identity, roomID string) *chat.Room {
	t.Helper()
	room, err := f.svc.CreateRoom(context.Background(), owner, "Room "+roomID, roomID)
	require.NoError(t, err)
	return room
}

// exec runs a query or mutation as id and decodes the data object.
func (f *fixture) exec(t *testing.T, id *auth.Identity, query string, vars map[string]any) map[string]any {
	t.Helper()
	resp := f.schema.Exec(auth.WithIdentity(context.Background(), id), query, "", vars)
	require.Empty(t, resp.Errors)
	var data map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	return data
}

// field walks nested maps by key.
func field(t *testing.T, v any, path ...string) any {
	t.Helper()
	for _, key := range path {
		m, ok := v.(map[string]any)
		require.Truef(t, ok, "expected object at %q, got %T", key, v)
		v = m[key]
	}
	return v
}

type syncWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncWriter) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}
