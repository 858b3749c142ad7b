// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package chat

import (
	"context"

	"github.com/oklog/ulid/v2"

	"github.com/parleyhq/parley/internal/pubsub"
)

// TopicRoomCreated is both the distributed channel and the in-process topic
// for new rooms.
const TopicRoomCreated = "ROOM_CREATED"

// EventPublisher fans an event out to subscribers. Publishing never fails
// from the caller's point of view.
type EventPublisher interface {
	Publish(ctx context.Context, event pubsub.Event)
}

// MessageAddedTopic is the in-process topic for new messages in a room.
func MessageAddedTopic(roomID ulid.ULID) string {
	return "MESSAGE_ADDED_" + roomID.String()
}

// UserJoinedTopic is the in-process topic for joins to a room.
func UserJoinedTopic(roomID ulid.ULID) string {
	return "USER_JOINED_" + roomID.String()
}

// UserLeftTopic is the in-process topic for departures from a room.
func UserLeftTopic(roomID ulid.ULID) string {
	return "USER_LEFT_" + roomID.String()
}

func roomCreatedEvent(room *Room) pubsub.Event {
	return pubsub.Event{Channel: TopicRoomCreated, Topic: TopicRoomCreated, Payload: room}
}

func messageAddedEvent(msg *Message) pubsub.Event {
	return pubsub.Event{
		Channel: "room:" + msg.RoomID.String(),
		Topic:   MessageAddedTopic(msg.RoomID),
		Payload: msg,
	}
}

func userJoinedEvent(m *Membership) pubsub.Event {
	return pubsub.Event{
		Channel: "USER_JOINED:" + m.RoomID.String(),
		Topic:   UserJoinedTopic(m.RoomID),
		Payload: m,
	}
}

func userLeftEvent(m *Membership) pubsub.Event {
	return pubsub.Event{
		Channel: "LEFT:" + m.RoomID.String(),
		Topic:   UserLeftTopic(m.RoomID),
		Payload: m,
	}
}
