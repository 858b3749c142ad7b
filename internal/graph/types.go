// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package graph

import (
	"context"
	"errors"
	"time"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/parleyhq/parley/internal/chat"
	"github.com/parleyhq/parley/pkg/errutil"
)

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// fieldError logs a nested lookup failure and returns the generic message,
// so store details never reach the client.
func (r *Resolver) fieldError(ctx context.Context, err error) error {
	errutil.LogErrorContext(ctx, r.logger, "field resolution failed", err)
	return errors.New(chat.MsgInternalError)
}

type userResolver struct {
	root *Resolver
	user *chat.User
}

func (r *userResolver) ID() graphql.ID    { return graphql.ID(r.user.ID.String()) }
func (r *userResolver) Username() string  { return r.user.Username }
func (r *userResolver) CreatedAt() string { return timestamp(r.user.CreatedAt) }
func (r *userResolver) UpdatedAt() string { return timestamp(r.user.UpdatedAt) }

func (r *userResolver) Messages(ctx context.Context) ([]*messageResolver, error) {
	msgs, err := r.root.svc.UserMessages(ctx, r.user.ID)
	if err != nil {
		return nil, r.root.fieldError(ctx, err)
	}
	return wrapMessages(r.root, msgs), nil
}

func (r *userResolver) UserRooms(ctx context.Context) ([]*roomResolver, error) {
	rooms, err := r.root.svc.UserRooms(ctx, r.user.ID)
	if err != nil {
		return nil, r.root.fieldError(ctx, err)
	}
	return wrapRooms(r.root, rooms), nil
}

type roomResolver struct {
	root *Resolver
	room *chat.Room
}

func (r *roomResolver) ID() graphql.ID    { return graphql.ID(r.room.ID.String()) }
func (r *roomResolver) Name() string      { return r.room.Name }
func (r *roomResolver) RoomID() string    { return r.room.RoomID }
func (r *roomResolver) CreatedAt() string { return timestamp(r.room.CreatedAt) }
func (r *roomResolver) UpdatedAt() string { return timestamp(r.room.UpdatedAt) }

func (r *roomResolver) Messages(ctx context.Context) ([]*messageResolver, error) {
	msgs, err := r.root.svc.RoomMessages(ctx, r.room.ID)
	if err != nil {
		return nil, r.root.fieldError(ctx, err)
	}
	return wrapMessages(r.root, msgs), nil
}

// UserRooms resolves the room's members.
func (r *roomResolver) UserRooms(ctx context.Context) ([]*userResolver, error) {
	users, err := r.root.svc.RoomMembers(ctx, r.room.ID)
	if err != nil {
		return nil, r.root.fieldError(ctx, err)
	}
	return wrapUsers(r.root, users), nil
}

type messageResolver struct {
	root *Resolver
	msg  *chat.Message
}

func (r *messageResolver) ID() graphql.ID    { return graphql.ID(r.msg.ID.String()) }
func (r *messageResolver) Content() string   { return r.msg.Content }
func (r *messageResolver) CreatedAt() string { return timestamp(r.msg.CreatedAt) }
func (r *messageResolver) UpdatedAt() string { return timestamp(r.msg.UpdatedAt) }

func (r *messageResolver) Room(ctx context.Context) (*roomResolver, error) {
	room, err := r.root.svc.Room(ctx, r.msg.RoomID)
	if err != nil {
		return nil, r.root.fieldError(ctx, err)
	}
	return &roomResolver{root: r.root, room: room}, nil
}

func (r *messageResolver) User(ctx context.Context) (*userResolver, error) {
	user, err := r.root.svc.User(ctx, r.msg.UserID)
	if err != nil {
		return nil, r.root.fieldError(ctx, err)
	}
	return &userResolver{root: r.root, user: user}, nil
}

type membershipResolver struct {
	root       *Resolver
	membership *chat.Membership
}

func (r *membershipResolver) ID() graphql.ID    { return graphql.ID(r.membership.ID.String()) }
func (r *membershipResolver) CreatedAt() string { return timestamp(r.membership.CreatedAt) }

func (r *membershipResolver) User(ctx context.Context) (*userResolver, error) {
	user, err := r.root.svc.User(ctx, r.membership.UserID)
	if err != nil {
		return nil, r.root.fieldError(ctx, err)
	}
	return &userResolver{root: r.root, user: user}, nil
}

func (r *membershipResolver) Room(ctx context.Context) (*roomResolver, error) {
	room, err := r.root.svc.Room(ctx, r.membership.RoomID)
	if err != nil {
		return nil, r.root.fieldError(ctx, err)
	}
	return &roomResolver{root: r.root, room: room}, nil
}

func wrapUsers(root *Resolver, users []*chat.User) []*userResolver {
	out := make([]*userResolver, len(users))
	for i, u := range users {
		out[i] = &userResolver{root: root, user: u}
	}
	return out
}

func wrapRooms(root *Resolver, rooms []*chat.Room) []*roomResolver {
	out := make([]*roomResolver, len(rooms))
	for i, room := range rooms {
		out[i] = &roomResolver{root: root, room: room}
	}
	return out
}

func wrapMessages(root *Resolver, msgs []*chat.Message) []*messageResolver {
	out := make([]*messageResolver, len(msgs))
	for i, m := range msgs {
		out[i] = &messageResolver{root: root, msg: m}
	}
	return out
}
