// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package chat

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/parleyhq/parley/internal/auth"
	"github.com/parleyhq/parley/internal/validate"
	"github.com/parleyhq/parley/pkg/errutil"
)

// TokenIssuer signs bearer tokens for a user ID.
type TokenIssuer interface {
	Sign(userID string) (string, time.Time, error)
}

// Service implements the chat operations. Methods taking an *auth.Identity
// fail with Unauthorized when it is nil.
type Service struct {
	store  Store
	hasher auth.PasswordHasher
	tokens TokenIssuer
	events EventPublisher
	logger *slog.Logger
}

// NewService creates a Service. All dependencies except logger are required.
func NewService(store Store, hasher auth.PasswordHasher, tokens TokenIssuer, events EventPublisher, logger *slog.Logger) (*Service, error) {
	switch {
	case store.Users == nil || store.Rooms == nil || store.Messages == nil || store.Memberships == nil:
		return nil, oops.Code("CHAT_INVALID_CONFIG").Errorf("all repositories are required")
	case store.Tx == nil:
		return nil, oops.Code("CHAT_INVALID_CONFIG").Errorf("transactor is required")
	case hasher == nil:
		return nil, oops.Code("CHAT_INVALID_CONFIG").Errorf("password hasher is required")
	case tokens == nil:
		return nil, oops.Code("CHAT_INVALID_CONFIG").Errorf("token issuer is required")
	case events == nil:
		return nil, oops.Code("CHAT_INVALID_CONFIG").Errorf("event publisher is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, hasher: hasher, tokens: tokens, events: events, logger: logger}, nil
}

// Users lists every registered user.
func (s *Service) Users(ctx context.Context, id *auth.Identity) ([]*User, error) {
	if id == nil {
		return nil, errUnauthorized
	}
	users, err := s.store.Users.List(ctx)
	if err != nil {
		return nil, oops.Code("LIST_USERS_FAILED").Wrap(err)
	}
	return users, nil
}

// Rooms lists every room.
func (s *Service) Rooms(ctx context.Context, id *auth.Identity) ([]*Room, error) {
	if id == nil {
		return nil, errUnauthorized
	}
	rooms, err := s.store.Rooms.List(ctx)
	if err != nil {
		return nil, oops.Code("LIST_ROOMS_FAILED").Wrap(err)
	}
	return rooms, nil
}

// Messages lists the messages of the room whose primary key is roomID.
// An unknown or malformed roomID yields an empty list.
func (s *Service) Messages(ctx context.Context, id *auth.Identity, roomID string) ([]*Message, error) {
	if id == nil {
		return nil, errUnauthorized
	}
	pk, err := ulid.Parse(roomID)
	if err != nil {
		return []*Message{}, nil
	}
	msgs, err := s.store.Messages.ListByRoom(ctx, pk)
	if err != nil {
		return nil, oops.Code("LIST_MESSAGES_FAILED").With("room_id", roomID).Wrap(err)
	}
	return msgs, nil
}

// CreateUser registers a new account.
func (s *Service) CreateUser(ctx context.Context, username, password string) (*User, error) {
	if err := validate.Credentials(username, password); err != nil {
		return nil, err
	}

	_, err := s.store.Users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, conflict(MsgUserExists)
	case !errors.Is(err, ErrNotFound):
		return nil, oops.Code("CREATE_USER_FAILED").With("operation", "lookup username").Wrap(err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("CREATE_USER_FAILED").With("operation", "hash password").Wrap(err)
	}

	user := NewUser(username, hash)
	if err := s.store.Users.Create(ctx, user); err != nil {
		return nil, oops.Code("CREATE_USER_FAILED").With("operation", "insert user").Wrap(err)
	}
	return user, nil
}

// CreateRoom creates a room and makes the caller its first member.
func (s *Service) CreateRoom(ctx context.Context, id *auth.Identity, name, roomID string) (*Room, error) {
	if id == nil {
		return nil, errUnauthorized
	}
	if err := validate.Room(name, roomID); err != nil {
		return nil, err
	}

	_, err := s.store.Rooms.GetByRoomID(ctx, roomID)
	switch {
	case err == nil:
		return nil, conflict(MsgRoomExists)
	case !errors.Is(err, ErrNotFound):
		return nil, oops.Code("CREATE_ROOM_FAILED").With("operation", "lookup room id").Wrap(err)
	}

	room := NewRoom(name, roomID)
	membership := NewMembership(id.UserID, room.ID)
	err = s.store.Tx.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.store.Rooms.Create(ctx, room); err != nil {
			return err
		}
		return s.store.Memberships.Create(ctx, membership)
	})
	if err != nil {
		return nil, oops.Code("CREATE_ROOM_FAILED").
			With("operation", "insert room").
			With("room_id", roomID).
			Wrap(err)
	}

	s.events.Publish(ctx, roomCreatedEvent(room))
	return room, nil
}

// CreateMessage posts content from the caller to the room whose primary key
// is roomID.
func (s *Service) CreateMessage(ctx context.Context, id *auth.Identity, content, roomID string) (*Message, error) {
	if id == nil {
		return nil, errUnauthorized
	}
	if err := validate.MessageContent(content); err != nil {
		return nil, err
	}

	if _, err := s.store.Users.GetByID(ctx, id.UserID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, conflict(MsgUserNotFound)
		}
		return nil, oops.Code("CREATE_MESSAGE_FAILED").With("operation", "lookup user").Wrap(err)
	}

	room, err := s.lookupRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	msg := NewMessage(content, id.UserID, room.ID)
	if err := s.store.Messages.Create(ctx, msg); err != nil {
		return nil, oops.Code("CREATE_MESSAGE_FAILED").
			With("operation", "insert message").
			With("room_id", roomID).
			Wrap(err)
	}

	s.events.Publish(ctx, messageAddedEvent(msg))
	return msg, nil
}

// JoinRoom makes the caller a member of the room whose primary key is roomID.
func (s *Service) JoinRoom(ctx context.Context, id *auth.Identity, roomID string) (*Room, error) {
	if id == nil {
		return nil, errUnauthorized
	}

	room, err := s.lookupRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	_, err = s.store.Memberships.Get(ctx, id.UserID, room.ID)
	switch {
	case err == nil:
		return nil, conflict(MsgAlreadyJoined)
	case !errors.Is(err, ErrNotFound):
		return nil, oops.Code("JOIN_ROOM_FAILED").With("operation", "lookup membership").Wrap(err)
	}

	membership := NewMembership(id.UserID, room.ID)
	if err := s.store.Memberships.Create(ctx, membership); err != nil {
		return nil, oops.Code("JOIN_ROOM_FAILED").
			With("operation", "insert membership").
			With("room_id", roomID).
			Wrap(err)
	}

	s.events.Publish(ctx, userJoinedEvent(membership))
	return room, nil
}

// LeaveRoom removes the caller's membership of the room whose primary key is
// roomID.
func (s *Service) LeaveRoom(ctx context.Context, id *auth.Identity, roomID string) (*Room, error) {
	if id == nil {
		return nil, errUnauthorized
	}

	pk, err := ulid.Parse(roomID)
	if err != nil {
		return nil, conflict(MsgNotInRoom)
	}

	membership, err := s.store.Memberships.Get(ctx, id.UserID, pk)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, conflict(MsgNotInRoom)
		}
		return nil, oops.Code("LEAVE_ROOM_FAILED").With("operation", "lookup membership").Wrap(err)
	}

	room, err := s.store.Rooms.GetByID(ctx, pk)
	if err != nil {
		return nil, oops.Code("LEAVE_ROOM_FAILED").With("operation", "lookup room").Wrap(err)
	}

	if err := s.store.Memberships.Delete(ctx, membership.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, conflict(MsgNotInRoom)
		}
		return nil, oops.Code("LEAVE_ROOM_FAILED").
			With("operation", "delete membership").
			With("room_id", roomID).
			Wrap(err)
	}

	s.events.Publish(ctx, userLeftEvent(membership))
	return room, nil
}

// Login checks credentials and returns the user with a signed bearer token.
// Legacy hashes are upgraded on success; failure to upgrade does not fail
// the login.
func (s *Service) Login(ctx context.Context, username, password string) (*User, string, error) {
	user, err := s.store.Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, "", conflict(MsgUserNotFound)
		}
		return nil, "", oops.Code("LOGIN_FAILED").With("operation", "lookup user").Wrap(err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, "", oops.Code("LOGIN_FAILED").
			With("operation", "verify password").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	if !ok {
		return nil, "", conflict(MsgInvalidPassword)
	}

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		s.upgradeHash(ctx, user, password)
	}

	token, _, err := s.tokens.Sign(user.ID.String())
	if err != nil {
		return nil, "", oops.Code("LOGIN_FAILED").With("operation", "sign token").Wrap(err)
	}
	return user, token, nil
}

func (s *Service) upgradeHash(ctx context.Context, user *User, password string) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		errutil.LogErrorContext(ctx, s.logger, "password rehash failed", err)
		return
	}
	if err := s.store.Users.UpdatePassword(ctx, user.ID, hash); err != nil {
		errutil.LogErrorContext(ctx, s.logger, "password hash upgrade failed", err)
		return
	}
	user.PasswordHash = hash
}

// lookupRoom resolves a primary key string, reporting any miss as a conflict.
func (s *Service) lookupRoom(ctx context.Context, roomID string) (*Room, error) {
	pk, err := ulid.Parse(roomID)
	if err != nil {
		return nil, conflict(MsgRoomNotFound)
	}
	room, err := s.store.Rooms.GetByID(ctx, pk)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, conflict(MsgRoomNotFound)
		}
		return nil, oops.Code("ROOM_LOOKUP_FAILED").With("room_id", roomID).Wrap(err)
	}
	return room, nil
}

// User returns a user by primary key.
func (s *Service) User(ctx context.Context, id ulid.ULID) (*User, error) {
	user, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		return nil, oops.Code("USER_LOOKUP_FAILED").With("user_id", id.String()).Wrap(err)
	}
	return user, nil
}

// Room returns a room by primary key.
func (s *Service) Room(ctx context.Context, id ulid.ULID) (*Room, error) {
	room, err := s.store.Rooms.GetByID(ctx, id)
	if err != nil {
		return nil, oops.Code("ROOM_LOOKUP_FAILED").With("room_id", id.String()).Wrap(err)
	}
	return room, nil
}

// UserMessages returns everything a user has posted.
func (s *Service) UserMessages(ctx context.Context, userID ulid.ULID) ([]*Message, error) {
	msgs, err := s.store.Messages.ListByUser(ctx, userID)
	if err != nil {
		return nil, oops.Code("LIST_MESSAGES_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	return msgs, nil
}

// UserRooms returns the rooms a user belongs to.
func (s *Service) UserRooms(ctx context.Context, userID ulid.ULID) ([]*Room, error) {
	rooms, err := s.store.Rooms.ListByUser(ctx, userID)
	if err != nil {
		return nil, oops.Code("LIST_ROOMS_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	return rooms, nil
}

// RoomMessages returns every message in a room.
func (s *Service) RoomMessages(ctx context.Context, roomID ulid.ULID) ([]*Message, error) {
	msgs, err := s.store.Messages.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, oops.Code("LIST_MESSAGES_FAILED").With("room_id", roomID.String()).Wrap(err)
	}
	return msgs, nil
}

// RoomMembers returns the users in a room.
func (s *Service) RoomMembers(ctx context.Context, roomID ulid.ULID) ([]*User, error) {
	users, err := s.store.Users.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, oops.Code("LIST_USERS_FAILED").With("room_id", roomID.String()).Wrap(err)
	}
	return users, nil
}
