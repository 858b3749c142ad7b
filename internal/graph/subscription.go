// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package graph

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/parleyhq/parley/internal/auth"
	"github.com/parleyhq/parley/internal/chat"
)

// RoomCreated streams rooms as they are created.
func (r *Resolver) RoomCreated(ctx context.Context) <-chan *roomResolver {
	return stream(ctx, r, "roomCreated", chat.TopicRoomCreated, func(room *chat.Room) *roomResolver {
		return &roomResolver{root: r, room: room}
	})
}

// MessageAdded streams messages posted to a room.
func (r *Resolver) MessageAdded(ctx context.Context, args roomArgs) <-chan *messageResolver {
	id, err := ulid.Parse(string(args.RoomID))
	if err != nil {
		return closed[*messageResolver]()
	}
	return stream(ctx, r, "messageAdded", chat.MessageAddedTopic(id), func(msg *chat.Message) *messageResolver {
		return &messageResolver{root: r, msg: msg}
	})
}

// UserJoined streams memberships added to a room.
func (r *Resolver) UserJoined(ctx context.Context, args roomArgs) <-chan *membershipResolver {
	id, err := ulid.Parse(string(args.RoomID))
	if err != nil {
		return closed[*membershipResolver]()
	}
	return stream(ctx, r, "userJoined", chat.UserJoinedTopic(id), r.wrapMembership)
}

// UserLeft streams memberships removed from a room.
func (r *Resolver) UserLeft(ctx context.Context, args roomArgs) <-chan *membershipResolver {
	id, err := ulid.Parse(string(args.RoomID))
	if err != nil {
		return closed[*membershipResolver]()
	}
	return stream(ctx, r, "userLeft", chat.UserLeftTopic(id), r.wrapMembership)
}

func (r *Resolver) wrapMembership(m *chat.Membership) *membershipResolver {
	return &membershipResolver{root: r, membership: m}
}

// stream subscribes to topic for as long as ctx lives and converts each
// payload of type P with wrap. Anonymous callers get a closed channel, which
// completes the subscription at once.
func stream[P any, T any](ctx context.Context, r *Resolver, field, topic string, wrap func(P) T) <-chan T {
	if auth.IdentityFrom(ctx) == nil {
		r.metrics.RecordOperation(field, chat.KindUnauthorized.String())
		return closed[T]()
	}
	r.metrics.RecordOperation(field, chat.KindOK.String())

	events := r.events.Subscribe(topic)
	done := r.metrics.SubscriptionOpened(field)
	out := make(chan T)

	go func() {
		defer close(out)
		defer done()
		defer r.events.Unsubscribe(topic, events)

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				payload, ok := ev.Payload.(P)
				if !ok {
					r.logger.WarnContext(ctx, "unexpected event payload", "topic", topic, "payload_type", fmt.Sprintf("%T", ev.Payload))
					continue
				}
				select {
				case out <- wrap(payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func closed[T any]() <-chan T {
	ch := make(chan T)
	close(ch)
	return ch
}
