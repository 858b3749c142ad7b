// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package graph

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/parleyhq/parley/internal/chat"
	"github.com/parleyhq/parley/pkg/errutil"
)

// Success messages, one per operation.
const (
	MsgUsersFetched    = "Users fetched successfully"
	MsgRoomsFetched    = "Rooms fetched successfully"
	MsgMessagesFetched = "Messages fetched successfully"
	MsgUserCreated     = "User created successfully"
	MsgRoomCreated     = "Room created successfully"
	MsgMessageCreated  = "Message created successfully"
	MsgRoomJoined      = "User joined room successfully"
	MsgRoomLeft        = "User left room successfully"
	MsgLoggedIn        = "Login successful"
)

// envelope is the common head of every response type.
type envelope struct {
	success bool
	message *string
}

func (e envelope) Success() bool    { return e.success }
func (e envelope) Message() *string { return e.message }

// startSpan opens the span for one root operation. Service calls and the
// log records of settle run under it.
func (r *Resolver) startSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, "graphql."+operation,
		trace.WithAttributes(attribute.String("graphql.operation", operation)),
	)
}

// settle translates a service result into an envelope. It is the only place
// service errors are turned into caller-visible text.
func (r *Resolver) settle(ctx context.Context, operation string, err error, okMsg string) envelope {
	kind, msg := chat.Classify(err)
	r.metrics.RecordOperation(operation, kind.String())

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("graphql.outcome", kind.String()))
	if kind == chat.KindInternal {
		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
	}

	switch kind {
	case chat.KindOK:
		return envelope{success: true, message: &okMsg}
	case chat.KindInternal:
		if errors.Is(err, chat.ErrDuplicate) {
			// a concurrent writer won the uniqueness check
			r.logger.WarnContext(ctx, "operation lost uniqueness race",
				append([]any{"operation", operation}, errutil.Attrs(err)...)...)
		} else {
			errutil.LogErrorContext(ctx, r.logger.With("operation", operation), "operation failed", err)
		}
	}
	return envelope{success: false, message: &msg}
}

type userResponse struct {
	envelope
	user  *userResolver
	token *string
	users []*userResolver
}

func (r *userResponse) User() *userResolver    { return r.user }
func (r *userResponse) Token() *string         { return r.token }
func (r *userResponse) Users() []*userResolver { return nonNil(r.users) }

type roomResponse struct {
	envelope
	room  *roomResolver
	rooms []*roomResolver
}

func (r *roomResponse) Room() *roomResolver    { return r.room }
func (r *roomResponse) Rooms() []*roomResolver { return nonNil(r.rooms) }

type messageResponse struct {
	envelope
	msg      *messageResolver
	messages []*messageResolver
}

func (r *messageResponse) Msg() *messageResolver        { return r.msg }
func (r *messageResponse) Messages() []*messageResolver { return nonNil(r.messages) }

// nonNil keeps non-null list fields from resolving to null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
