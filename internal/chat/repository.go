// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package chat

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user. A taken username wraps ErrDuplicate.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByUsername retrieves a user by exact username.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// List returns all users ordered by creation.
	List(ctx context.Context) ([]*User, error)

	// ListByRoom returns the members of a room.
	ListByRoom(ctx context.Context, roomID ulid.ULID) ([]*User, error)

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error
}

// RoomRepository manages room persistence.
type RoomRepository interface {
	// Create stores a new room. A taken RoomID wraps ErrDuplicate.
	Create(ctx context.Context, room *Room) error

	// GetByID retrieves a room by primary key.
	GetByID(ctx context.Context, id ulid.ULID) (*Room, error)

	// GetByRoomID retrieves a room by its external identifier.
	GetByRoomID(ctx context.Context, roomID string) (*Room, error)

	// List returns all rooms ordered by creation.
	List(ctx context.Context) ([]*Room, error)

	// ListByUser returns the rooms a user is a member of.
	ListByUser(ctx context.Context, userID ulid.ULID) ([]*Room, error)
}

// MessageRepository manages message persistence. Messages are append-only.
type MessageRepository interface {
	Create(ctx context.Context, msg *Message) error
	ListByRoom(ctx context.Context, roomID ulid.ULID) ([]*Message, error)
	ListByUser(ctx context.Context, userID ulid.ULID) ([]*Message, error)
}

// MembershipRepository manages user-room memberships.
type MembershipRepository interface {
	// Create stores a membership. An existing (user, room) pair wraps ErrDuplicate.
	Create(ctx context.Context, m *Membership) error

	// Get returns the membership for (userID, roomID), or ErrNotFound.
	Get(ctx context.Context, userID, roomID ulid.ULID) (*Membership, error)

	// Delete removes a membership by ID.
	Delete(ctx context.Context, id ulid.ULID) error
}

// Transactor runs fn inside a single database transaction. Repository calls
// made with the context passed to fn participate in it.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store groups the repositories the service depends on.
type Store struct {
	Users       UserRepository
	Rooms       RoomRepository
	Messages    MessageRepository
	Memberships MembershipRepository
	Tx          Transactor
}
