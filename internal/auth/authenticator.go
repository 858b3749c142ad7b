// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/oklog/ulid/v2"
)

const bearerPrefix = "Bearer "

// TokenVerifier verifies a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// Authenticator turns an Authorization header into an Identity.
// It never fails: anything short of a valid token yields an anonymous caller.
type Authenticator struct {
	tokens TokenVerifier
	logger *slog.Logger
}

// NewAuthenticator creates an Authenticator. A nil logger uses slog.Default().
func NewAuthenticator(tokens TokenVerifier, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{tokens: tokens, logger: logger}
}

// Identify returns the identity for an Authorization header value, or nil.
func (a *Authenticator) Identify(ctx context.Context, header string) *Identity {
	token, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok {
		return nil
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}

	claims, err := a.tokens.Verify(token)
	if err != nil {
		a.logger.DebugContext(ctx, "bearer token rejected", "error", err)
		return nil
	}

	userID, err := ulid.Parse(claims.UserID)
	if err != nil {
		a.logger.DebugContext(ctx, "bearer token has malformed user id", "user_id", claims.UserID)
		return nil
	}
	return &Identity{UserID: userID}
}

// Middleware stores the caller identity in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := a.Identify(r.Context(), r.Header.Get("Authorization"))
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}
