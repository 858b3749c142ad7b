// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package main

import (
	"bytes"
	"context"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/parleyhq/parley/internal/chat/postgres"
	"github.com/parleyhq/parley/internal/observability"
)

// mockPool satisfies Pool. Repository calls panic through the nil DB.
type mockPool struct {
	postgres.DB
	pingErr error
	closed  atomic.Bool
}

func (m *mockPool) Ping(context.Context) error { return m.pingErr }
func (m *mockPool) Close()                     { m.closed.Store(true) }

type mockMigrator struct {
	upCalled    bool
	upError     error
	closeCalled bool
	closeError  error

	downCalled bool
	steps      int
	forced     *int
	version    uint
	dirty      bool
	pending    []uint
}

func (m *mockMigrator) Up() error {
	m.upCalled = true
	return m.upError
}

func (m *mockMigrator) Close() error {
	m.closeCalled = true
	return m.closeError
}

func (m *mockMigrator) Down() error {
	m.downCalled = true
	return nil
}

func (m *mockMigrator) Steps(n int) error {
	m.steps = n
	return nil
}

func (m *mockMigrator) Version() (uint, bool, error) { return m.version, m.dirty, nil }

func (m *mockMigrator) Force(version int) error {
	m.forced = &version
	return nil
}

func (m *mockMigrator) PendingMigrations() ([]uint, error) { return m.pending, nil }
func (m *mockMigrator) AppliedMigrations() ([]uint, error) { return nil, nil }

type mockObservabilityServer struct {
	startFunc func() (<-chan error, error)
	stopped   atomic.Bool
	metrics   *observability.Metrics
}

func (m *mockObservabilityServer) Start() (<-chan error, error) {
	if m.startFunc != nil {
		return m.startFunc()
	}
	return make(chan error), nil
}

func (m *mockObservabilityServer) Stop(context.Context) error {
	m.stopped.Store(true)
	return nil
}

func (m *mockObservabilityServer) Addr() string { return "127.0.0.1:9100" }

func (m *mockObservabilityServer) Metrics() *observability.Metrics {
	if m.metrics == nil {
		m.metrics = observability.NewMetrics(prometheus.NewRegistry())
	}
	return m.metrics
}

func newMockCmd() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	return cmd
}
