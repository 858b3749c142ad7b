// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package graph

import (
	"context"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/parleyhq/parley/internal/auth"
	"github.com/parleyhq/parley/internal/chat"
)

type credentialsArgs struct {
	Username string
	Password string
}

type roomArgs struct {
	RoomID graphql.ID
}

// CreateUser registers an account.
func (r *Resolver) CreateUser(ctx context.Context, args credentialsArgs) *userResponse {
	ctx, span := r.startSpan(ctx, "createUser")
	defer span.End()
	user, err := r.svc.CreateUser(ctx, args.Username, args.Password)
	resp := &userResponse{envelope: r.settle(ctx, "createUser", err, MsgUserCreated)}
	if err == nil {
		resp.user = &userResolver{root: r, user: user}
	}
	return resp
}

// Login verifies credentials and issues a bearer token.
func (r *Resolver) Login(ctx context.Context, args credentialsArgs) *userResponse {
	ctx, span := r.startSpan(ctx, "login")
	defer span.End()
	user, token, err := r.svc.Login(ctx, args.Username, args.Password)
	resp := &userResponse{envelope: r.settle(ctx, "login", err, MsgLoggedIn)}
	if err == nil {
		resp.user = &userResolver{root: r, user: user}
		resp.token = &token
	}
	return resp
}

// CreateRoom creates a room with the caller as its first member.
func (r *Resolver) CreateRoom(ctx context.Context, args struct {
	Name   string
	RoomID string
}) *roomResponse {
	ctx, span := r.startSpan(ctx, "createRoom")
	defer span.End()
	room, err := r.svc.CreateRoom(ctx, auth.IdentityFrom(ctx), args.Name, args.RoomID)
	return r.roomResult(ctx, "createRoom", room, err, MsgRoomCreated)
}

// CreateMessage posts to a room.
func (r *Resolver) CreateMessage(ctx context.Context, args struct {
	Content string
	RoomID  graphql.ID
}) *messageResponse {
	ctx, span := r.startSpan(ctx, "createMessage")
	defer span.End()
	msg, err := r.svc.CreateMessage(ctx, auth.IdentityFrom(ctx), args.Content, string(args.RoomID))
	resp := &messageResponse{envelope: r.settle(ctx, "createMessage", err, MsgMessageCreated)}
	if err == nil {
		resp.msg = &messageResolver{root: r, msg: msg}
	}
	return resp
}

// JoinRoom adds the caller to a room.
func (r *Resolver) JoinRoom(ctx context.Context, args roomArgs) *roomResponse {
	ctx, span := r.startSpan(ctx, "joinRoom")
	defer span.End()
	room, err := r.svc.JoinRoom(ctx, auth.IdentityFrom(ctx), string(args.RoomID))
	return r.roomResult(ctx, "joinRoom", room, err, MsgRoomJoined)
}

// LeaveRoom removes the caller from a room.
func (r *Resolver) LeaveRoom(ctx context.Context, args roomArgs) *roomResponse {
	ctx, span := r.startSpan(ctx, "leaveRoom")
	defer span.End()
	room, err := r.svc.LeaveRoom(ctx, auth.IdentityFrom(ctx), string(args.RoomID))
	return r.roomResult(ctx, "leaveRoom", room, err, MsgRoomLeft)
}

func (r *Resolver) roomResult(ctx context.Context, operation string, room *chat.Room, err error, okMsg string) *roomResponse {
	resp := &roomResponse{envelope: r.settle(ctx, operation, err, okMsg)}
	if err == nil {
		resp.room = &roomResolver{root: r, room: room}
	}
	return resp
}
