// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package auth

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// Identity is the authenticated caller of a request.
// A nil *Identity means the request is anonymous.
type Identity struct {
	UserID ulid.ULID
}

type identityKey struct{}

// WithIdentity returns a context carrying id. A nil id is stored as anonymous.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored in ctx, or nil.
func IdentityFrom(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}
