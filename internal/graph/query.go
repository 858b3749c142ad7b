// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package graph

import (
	"context"

	"github.com/parleyhq/parley/internal/auth"
)

// Users lists every user.
func (r *Resolver) Users(ctx context.Context) *userResponse {
	ctx, span := r.startSpan(ctx, "users")
	defer span.End()
	users, err := r.svc.Users(ctx, auth.IdentityFrom(ctx))
	resp := &userResponse{envelope: r.settle(ctx, "users", err, MsgUsersFetched)}
	if err == nil {
		resp.users = wrapUsers(r, users)
	}
	return resp
}

// Rooms lists every room.
func (r *Resolver) Rooms(ctx context.Context) *roomResponse {
	ctx, span := r.startSpan(ctx, "rooms")
	defer span.End()
	rooms, err := r.svc.Rooms(ctx, auth.IdentityFrom(ctx))
	resp := &roomResponse{envelope: r.settle(ctx, "rooms", err, MsgRoomsFetched)}
	if err == nil {
		resp.rooms = wrapRooms(r, rooms)
	}
	return resp
}

// Messages lists the messages of a room in creation order.
func (r *Resolver) Messages(ctx context.Context, args roomArgs) *messageResponse {
	ctx, span := r.startSpan(ctx, "messages")
	defer span.End()
	msgs, err := r.svc.Messages(ctx, auth.IdentityFrom(ctx), string(args.RoomID))
	resp := &messageResponse{envelope: r.settle(ctx, "messages", err, MsgMessagesFetched)}
	if err == nil {
		resp.messages = wrapMessages(r, msgs)
	}
	return resp
}
