// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package chat

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// User is a registered account. PasswordHash is never serialized.
type User struct {
	ID           ulid.ULID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Room is a chat room. RoomID is the unique external identifier chosen by
// its creator; ID is the primary key other entities reference.
type Room struct {
	ID        ulid.ULID `json:"id"`
	Name      string    `json:"name"`
	RoomID    string    `json:"roomId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message is immutable once created.
type Message struct {
	ID        ulid.ULID `json:"id"`
	Content   string    `json:"content"`
	UserID    ulid.ULID `json:"userId"`
	RoomID    ulid.ULID `json:"roomId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Membership records that a user is in a room. Its existence is the only
// source of truth for membership; leaving deletes it.
type Membership struct {
	ID        ulid.ULID `json:"id"`
	UserID    ulid.ULID `json:"userId"`
	RoomID    ulid.ULID `json:"roomId"`
	CreatedAt time.Time `json:"createdAt"`
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// NewUser builds a User with a fresh ID and timestamps.
func NewUser(username, passwordHash string) *User {
	t := now()
	return &User{ID: ulid.Make(), Username: username, PasswordHash: passwordHash, CreatedAt: t, UpdatedAt: t}
}

// NewRoom builds a Room with a fresh ID and timestamps.
func NewRoom(name, roomID string) *Room {
	t := now()
	return &Room{ID: ulid.Make(), Name: name, RoomID: roomID, CreatedAt: t, UpdatedAt: t}
}

// NewMessage builds a Message with a fresh ID and timestamps.
func NewMessage(content string, userID, roomID ulid.ULID) *Message {
	t := now()
	return &Message{ID: ulid.Make(), Content: content, UserID: userID, RoomID: roomID, CreatedAt: t, UpdatedAt: t}
}

// NewMembership builds a Membership with a fresh ID.
func NewMembership(userID, roomID ulid.ULID) *Membership {
	return &Membership{ID: ulid.Make(), UserID: userID, RoomID: roomID, CreatedAt: now()}
}
