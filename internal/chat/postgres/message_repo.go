// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/parleyhq/parley/internal/chat"
)

// MessageRepository implements chat.MessageRepository using PostgreSQL.
type MessageRepository struct {
	db DB
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(db DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create stores a new message.
func (r *MessageRepository) Create(ctx context.Context, msg *chat.Message) error {
	_, err := conn(ctx, r.db).Exec(ctx, `
		INSERT INTO messages (id, content, user_id, room_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		msg.ID.String(),
		msg.Content,
		msg.UserID.String(),
		msg.RoomID.String(),
		msg.CreatedAt,
		msg.UpdatedAt,
	)
	if err != nil {
		return wrapWrite(oops.Code("MESSAGE_CREATE_FAILED").
			With("operation", "insert message").
			With("room_id", msg.RoomID.String()), err)
	}
	return nil
}

// ListByRoom returns a room's messages oldest first.
func (r *MessageRepository) ListByRoom(ctx context.Context, roomID ulid.ULID) ([]*chat.Message, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `
		SELECT id, content, user_id, room_id, created_at, updated_at
		FROM messages
		WHERE room_id = $1
		ORDER BY created_at, id
	`, roomID.String())
	if err != nil {
		return nil, oops.Code("MESSAGE_LIST_FAILED").
			With("operation", "list room messages").
			With("room_id", roomID.String()).
			Wrap(err)
	}
	return collectMessages(rows)
}

// ListByUser returns a user's messages oldest first.
func (r *MessageRepository) ListByUser(ctx context.Context, userID ulid.ULID) ([]*chat.Message, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `
		SELECT id, content, user_id, room_id, created_at, updated_at
		FROM messages
		WHERE user_id = $1
		ORDER BY created_at, id
	`, userID.String())
	if err != nil {
		return nil, oops.Code("MESSAGE_LIST_FAILED").
			With("operation", "list user messages").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return collectMessages(rows)
}

func collectMessages(rows pgx.Rows) ([]*chat.Message, error) {
	defer rows.Close()

	msgs := []*chat.Message{}
	for rows.Next() {
		var (
			msg                   chat.Message
			idStr, userID, roomID string
		)
		if err := rows.Scan(&idStr, &msg.Content, &userID, &roomID, &msg.CreatedAt, &msg.UpdatedAt); err != nil {
			return nil, oops.Code("MESSAGE_SCAN_FAILED").Wrap(err)
		}
		var err error
		if msg.ID, err = parseID(idStr, "message_id"); err != nil {
			return nil, oops.Code("MESSAGE_SCAN_FAILED").Wrap(err)
		}
		if msg.UserID, err = parseID(userID, "user_id"); err != nil {
			return nil, oops.Code("MESSAGE_SCAN_FAILED").Wrap(err)
		}
		if msg.RoomID, err = parseID(roomID, "room_id"); err != nil {
			return nil, oops.Code("MESSAGE_SCAN_FAILED").Wrap(err)
		}
		msgs = append(msgs, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("MESSAGE_LIST_FAILED").With("operation", "iterate messages").Wrap(err)
	}
	return msgs, nil
}
