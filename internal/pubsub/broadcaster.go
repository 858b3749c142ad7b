// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package pubsub

import (
	"log/slog"
	"sync"
)

// SubscriberBuffer is the capacity of each subscriber channel.
const SubscriberBuffer = 100

// Broadcaster distributes events to in-process subscribers by topic.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[string][]chan Event
	logger *slog.Logger
}

// NewBroadcaster creates a new broadcaster. A nil logger uses slog.Default.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subs:   make(map[string][]chan Event),
		logger: logger,
	}
}

// Subscribe creates a channel for receiving events on a topic.
func (b *Broadcaster) Subscribe(topic string) chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, SubscriberBuffer)
	b.subs[topic] = append(b.subs[topic], ch)
	return ch
}

// Unsubscribe removes a channel from a topic and closes it. Unknown channels
// are ignored, so calling it twice is safe.
func (b *Broadcaster) Unsubscribe(topic string, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[topic]
	for i, sub := range subs {
		if sub == ch {
			b.subs[topic] = append(subs[:i], subs[i+1:]...)
			if len(b.subs[topic]) == 0 {
				delete(b.subs, topic)
			}
			close(ch)
			return
		}
	}
}

// Subscribers reports how many channels are subscribed to topic.
func (b *Broadcaster) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// Broadcast sends an event to all subscribers of its topic. A subscriber
// whose buffer is full misses the event; the number of such drops is returned.
func (b *Broadcaster) Broadcast(event Event) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	dropped := 0
	for _, ch := range b.subs[event.Topic] {
		select {
		case ch <- event:
		default:
			dropped++
			b.logger.Warn("event dropped: subscriber buffer full", "topic", event.Topic)
		}
	}
	return dropped
}
