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

// MembershipRepository implements chat.MembershipRepository using PostgreSQL.
type MembershipRepository struct {
	db DB
}

// NewMembershipRepository creates a new MembershipRepository.
func NewMembershipRepository(db DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// Create stores a membership.
func (r *MembershipRepository) Create(ctx context.Context, m *chat.Membership) error {
	_, err := conn(ctx, r.db).Exec(ctx, `
		INSERT INTO memberships (id, user_id, room_id, created_at)
		VALUES ($1, $2, $3, $4)
	`, m.ID.String(), m.UserID.String(), m.RoomID.String(), m.CreatedAt)
	if err != nil {
		return wrapWrite(oops.Code("MEMBERSHIP_CREATE_FAILED").
			With("operation", "insert membership").
			With("user_id", m.UserID.String()).
			With("room_id", m.RoomID.String()), err)
	}
	return nil
}

// Get returns the membership for (userID, roomID).
func (r *MembershipRepository) Get(ctx context.Context, userID, roomID ulid.ULID) (*chat.Membership, error) {
	var (
		m                     chat.Membership
		idStr, uidStr, ridStr string
	)
	err := conn(ctx, r.db).QueryRow(ctx, `
		SELECT id, user_id, room_id, created_at
		FROM memberships
		WHERE user_id = $1 AND room_id = $2
	`, userID.String(), roomID.String()).Scan(&idStr, &uidStr, &ridStr, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("MEMBERSHIP_NOT_FOUND").
			With("user_id", userID.String()).
			With("room_id", roomID.String()).
			Wrap(chat.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("MEMBERSHIP_GET_FAILED").
			With("operation", "get membership").
			With("user_id", userID.String()).
			With("room_id", roomID.String()).
			Wrap(err)
	}

	if m.ID, err = parseID(idStr, "membership_id"); err != nil {
		return nil, oops.Code("MEMBERSHIP_GET_FAILED").Wrap(err)
	}
	if m.UserID, err = parseID(uidStr, "user_id"); err != nil {
		return nil, oops.Code("MEMBERSHIP_GET_FAILED").Wrap(err)
	}
	if m.RoomID, err = parseID(ridStr, "room_id"); err != nil {
		return nil, oops.Code("MEMBERSHIP_GET_FAILED").Wrap(err)
	}
	return &m, nil
}

// Delete removes a membership by ID.
func (r *MembershipRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM memberships WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("MEMBERSHIP_DELETE_FAILED").
			With("operation", "delete membership").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("MEMBERSHIP_NOT_FOUND").With("id", id.String()).Wrap(chat.ErrNotFound)
	}
	return nil
}
