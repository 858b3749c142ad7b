// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package pubsub

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedPublish struct {
	channel string
	payload any
	hasDL   bool
}

type stubRemote struct {
	mu    sync.Mutex
	calls []recordedPublish
	err   error
	block bool
}

func (s *stubRemote) Publish(ctx context.Context, channel string, payload any) error {
	_, hasDL := ctx.Deadline()
	s.mu.Lock()
	s.calls = append(s.calls, recordedPublish{channel: channel, payload: payload, hasDL: hasDL})
	s.mu.Unlock()
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.err
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) RecordPublish(transport, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = make(map[string]int)
	}
	r.counts[transport+"/"+outcome]++
}

func TestFanout_PublishesRemoteThenLocal(t *testing.T) {
	remote := &stubRemote{}
	local := NewBroadcaster(nil)
	rec := &countingRecorder{}
	f := NewFanout(remote, local, WithRecorder(rec))

	ch := local.Subscribe("ROOM_CREATED")
	f.Publish(context.Background(), Event{Channel: "ROOM_CREATED", Topic: "ROOM_CREATED", Payload: "room"})

	require.Len(t, remote.calls, 1)
	assert.Equal(t, "ROOM_CREATED", remote.calls[0].channel)
	assert.Equal(t, "room", remote.calls[0].payload)
	assert.True(t, remote.calls[0].hasDL, "remote publish should be bounded")

	assert.Equal(t, "room", receive(t, ch).Payload)
	assert.Empty(t, ch, "exactly one event expected")
	assert.Equal(t, 1, rec.counts["redis/ok"])
	assert.Equal(t, 1, rec.counts["local/ok"])
}

func TestFanout_RemoteFailureStillDeliversLocally(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	remote := &stubRemote{err: errors.New("connection refused")}
	local := NewBroadcaster(nil)
	rec := &countingRecorder{}
	f := NewFanout(remote, local, WithRecorder(rec), WithLogger(logger))

	ch := local.Subscribe("room-topic")
	f.Publish(context.Background(), Event{Channel: "room:x", Topic: "room-topic", Payload: 1})

	assert.Equal(t, 1, receive(t, ch).Payload)
	assert.Equal(t, 1, rec.counts["redis/error"])
	assert.Contains(t, buf.String(), "distributed publish failed")
}

func TestFanout_TimeoutBoundsRemote(t *testing.T) {
	remote := &stubRemote{block: true}
	rec := &countingRecorder{}
	f := NewFanout(remote, NewBroadcaster(nil), WithTimeout(20*time.Millisecond), WithRecorder(rec))

	start := time.Now()
	f.Publish(context.Background(), Event{Channel: "c", Topic: "t"})

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, rec.counts["redis/error"])
}

func TestFanout_IgnoresCallerCancellation(t *testing.T) {
	remote := &stubRemote{}
	f := NewFanout(remote, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.Publish(ctx, Event{Channel: "c"})

	require.Len(t, remote.calls, 1)
}

func TestFanout_NilRemote(t *testing.T) {
	local := NewBroadcaster(nil)
	f := NewFanout(nil, local)
	ch := local.Subscribe("t")

	f.Publish(context.Background(), Event{Channel: "c", Topic: "t", Payload: "p"})

	assert.Equal(t, "p", receive(t, ch).Payload)
}

func TestFanout_RecordsDrops(t *testing.T) {
	local := NewBroadcaster(nil)
	rec := &countingRecorder{}
	f := NewFanout(nil, local, WithRecorder(rec))
	local.Subscribe("t")

	for i := 0; i <= SubscriberBuffer; i++ {
		f.Publish(context.Background(), Event{Topic: "t"})
	}

	assert.Equal(t, SubscriberBuffer, rec.counts["local/ok"])
	assert.Equal(t, 1, rec.counts["local/dropped"])
}

func TestFanout_LogsLocalDelivery(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	local := NewBroadcaster(logger)
	ch := local.Subscribe("ROOM_CREATED")
	defer local.Unsubscribe("ROOM_CREATED", ch)

	NewFanout(nil, local, WithLogger(logger)).Publish(context.Background(), Event{Topic: "ROOM_CREATED", Payload: "room"})

	<-ch
	assert.Contains(t, logs.String(), "event broadcast")
	assert.Contains(t, logs.String(), "subscribers=1")
	assert.Contains(t, logs.String(), "dropped=0")
}
