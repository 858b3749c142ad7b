// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/parleyhq/parley/internal/chat"
)

const userColumns = `u.id, u.username, u.password_hash, u.created_at, u.updated_at`

// UserRepository implements chat.UserRepository using PostgreSQL.
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create stores a new user.
func (r *UserRepository) Create(ctx context.Context, user *chat.User) error {
	_, err := conn(ctx, r.db).Exec(ctx, `
		INSERT INTO users (id, username, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		user.ID.String(),
		user.Username,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return wrapWrite(oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("username", user.Username), err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*chat.User, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(chat.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").
			With("operation", "get user by id").
			With("id", id.String()).
			Wrap(err)
	}
	return user, nil
}

// GetByUsername retrieves a user by exact username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*chat.User, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.username = $1`, username)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With("username", username).Wrap(chat.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").
			With("operation", "get user by username").
			With("username", username).
			Wrap(err)
	}
	return user, nil
}

// List returns all users ordered by creation.
func (r *UserRepository) List(ctx context.Context) ([]*chat.User, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT `+userColumns+` FROM users u ORDER BY u.created_at, u.id`)
	if err != nil {
		return nil, oops.Code("USER_LIST_FAILED").With("operation", "list users").Wrap(err)
	}
	return collectUsers(rows)
}

// ListByRoom returns the members of a room in join order.
func (r *UserRepository) ListByRoom(ctx context.Context, roomID ulid.ULID) ([]*chat.User, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `
		SELECT `+userColumns+`
		FROM users u
		JOIN memberships m ON m.user_id = u.id
		WHERE m.room_id = $1
		ORDER BY m.created_at, m.id
	`, roomID.String())
	if err != nil {
		return nil, oops.Code("USER_LIST_FAILED").
			With("operation", "list room members").
			With("room_id", roomID.String()).
			Wrap(err)
	}
	return collectUsers(rows)
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	result, err := conn(ctx, r.db).Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1
	`, id.String(), passwordHash, time.Now().UTC())
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update password").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(chat.ErrNotFound)
	}
	return nil
}

func scanUser(row scanner) (*chat.User, error) {
	var (
		user  chat.User
		idStr string
	)
	if err := row.Scan(&idStr, &user.Username, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	id, err := parseID(idStr, "user_id")
	if err != nil {
		return nil, err
	}
	user.ID = id
	return &user, nil
}

func collectUsers(rows pgx.Rows) ([]*chat.User, error) {
	defer rows.Close()

	users := []*chat.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, oops.Code("USER_SCAN_FAILED").Wrap(err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("USER_LIST_FAILED").With("operation", "iterate users").Wrap(err)
	}
	return users, nil
}
