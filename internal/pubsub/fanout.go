// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package pubsub

import (
	"context"
	"log/slog"
	"time"

	"github.com/parleyhq/parley/pkg/errutil"
)

// Transport labels for PublishRecorder.
const (
	TransportRedis = "redis"
	TransportLocal = "local"
)

// Outcome labels for PublishRecorder.
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeDropped = "dropped"
)

// DefaultPublishTimeout bounds a single distributed publish. The mutation
// that triggered the event waits at most this long for an unreachable Redis.
const DefaultPublishTimeout = 500 * time.Millisecond

// RemotePublisher publishes a payload on a named distributed channel.
type RemotePublisher interface {
	Publish(ctx context.Context, channel string, payload any) error
}

// PublishRecorder counts publish outcomes per transport.
type PublishRecorder interface {
	RecordPublish(transport, outcome string)
}

// Fanout publishes each event remotely and then locally. It never reports
// failure to the caller.
type Fanout struct {
	remote  RemotePublisher
	local   *Broadcaster
	timeout time.Duration
	metrics PublishRecorder
	logger  *slog.Logger
}

// FanoutOption configures a Fanout.
type FanoutOption func(*Fanout)

// WithTimeout bounds each distributed publish. Non-positive values keep the default.
func WithTimeout(d time.Duration) FanoutOption {
	return func(f *Fanout) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithRecorder attaches a publish outcome recorder.
func WithRecorder(r PublishRecorder) FanoutOption {
	return func(f *Fanout) { f.metrics = r }
}

// WithLogger sets the logger used for publish failures.
func WithLogger(l *slog.Logger) FanoutOption {
	return func(f *Fanout) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFanout creates a Fanout. remote may be nil to run without a
// distributed transport.
func NewFanout(remote RemotePublisher, local *Broadcaster, opts ...FanoutOption) *Fanout {
	f := &Fanout{
		remote:  remote,
		local:   local,
		timeout: DefaultPublishTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Publish delivers event to the distributed channel, then to local
// subscribers. Errors are logged and counted.
func (f *Fanout) Publish(ctx context.Context, event Event) {
	if f.remote != nil && event.Channel != "" {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
		err := f.remote.Publish(pctx, event.Channel, event.Payload)
		cancel()
		if err != nil {
			errutil.LogErrorContext(ctx, f.logger, "distributed publish failed", err)
			f.record(TransportRedis, OutcomeError)
		} else {
			f.record(TransportRedis, OutcomeOK)
		}
	}

	if f.local != nil && event.Topic != "" {
		dropped := f.local.Broadcast(event)
		f.logger.DebugContext(ctx, "event broadcast",
			"topic", event.Topic,
			"subscribers", f.local.Subscribers(event.Topic),
			"dropped", dropped,
		)
		if dropped > 0 {
			f.record(TransportLocal, OutcomeDropped)
		} else {
			f.record(TransportLocal, OutcomeOK)
		}
	}
}

func (f *Fanout) record(transport, outcome string) {
	if f.metrics != nil {
		f.metrics.RecordPublish(transport, outcome)
	}
}
