// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/parleyhq/parley/internal/chat"
)

const roomColumns = `r.id, r.name, r.room_id, r.created_at, r.updated_at`

// RoomRepository implements chat.RoomRepository using PostgreSQL.
type RoomRepository struct {
	db DB
}

// NewRoomRepository creates a new RoomRepository.
func NewRoomRepository(db DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// Create stores a new room.
func (r *RoomRepository) Create(ctx context.Context, room *chat.Room) error {
	_, err := conn(ctx, r.db).Exec(ctx, `
		INSERT INTO rooms (id, name, room_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		room.ID.String(),
		room.Name,
		room.RoomID,
		room.CreatedAt,
		room.UpdatedAt,
	)
	if err != nil {
		return wrapWrite(oops.Code("ROOM_CREATE_FAILED").
			With("operation", "insert room").
			With("room_id", room.RoomID), err)
	}
	return nil
}

// GetByID retrieves a room by primary key.
func (r *RoomRepository) GetByID(ctx context.Context, id ulid.ULID) (*chat.Room, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms r WHERE r.id = $1`, id.String())
	return r.get(row, "id", id.String())
}

// GetByRoomID retrieves a room by its external identifier.
func (r *RoomRepository) GetByRoomID(ctx context.Context, roomID string) (*chat.Room, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms r WHERE r.room_id = $1`, roomID)
	return r.get(row, "room_id", roomID)
}

func (r *RoomRepository) get(row pgx.Row, key, value string) (*chat.Room, error) {
	room, err := scanRoom(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ROOM_NOT_FOUND").With(key, value).Wrap(chat.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ROOM_GET_FAILED").
			With("operation", "get room by "+key).
			With(key, value).
			Wrap(err)
	}
	return room, nil
}

// List returns all rooms ordered by creation.
func (r *RoomRepository) List(ctx context.Context) ([]*chat.Room, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT `+roomColumns+` FROM rooms r ORDER BY r.created_at, r.id`)
	if err != nil {
		return nil, oops.Code("ROOM_LIST_FAILED").With("operation", "list rooms").Wrap(err)
	}
	return collectRooms(rows)
}

// ListByUser returns the rooms a user is a member of, in join order.
func (r *RoomRepository) ListByUser(ctx context.Context, userID ulid.ULID) ([]*chat.Room, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `
		SELECT `+roomColumns+`
		FROM rooms r
		JOIN memberships m ON m.room_id = r.id
		WHERE m.user_id = $1
		ORDER BY m.created_at, m.id
	`, userID.String())
	if err != nil {
		return nil, oops.Code("ROOM_LIST_FAILED").
			With("operation", "list user rooms").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return collectRooms(rows)
}

func scanRoom(row scanner) (*chat.Room, error) {
	var (
		room  chat.Room
		idStr string
	)
	if err := row.Scan(&idStr, &room.Name, &room.RoomID, &room.CreatedAt, &room.UpdatedAt); err != nil {
		return nil, err
	}
	id, err := parseID(idStr, "room_pk")
	if err != nil {
		return nil, err
	}
	room.ID = id
	return &room, nil
}

func collectRooms(rows pgx.Rows) ([]*chat.Room, error) {
	defer rows.Close()

	rooms := []*chat.Room{}
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, oops.Code("ROOM_SCAN_FAILED").Wrap(err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ROOM_LIST_FAILED").With("operation", "iterate rooms").Wrap(err)
	}
	return rooms, nil
}
