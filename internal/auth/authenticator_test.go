// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/internal/auth"
)

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) Verify(token string) (*auth.Claims, error) {
	args := m.Called(token)
	claims, _ := args.Get(0).(*auth.Claims)
	return claims, args.Error(1)
}

func TestAuthenticator_Identify(t *testing.T) {
	ctx := context.Background()
	userID := ulid.Make()

	t.Run("valid bearer token yields identity", func(t *testing.T) {
		verifier := &mockVerifier{}
		verifier.On("Verify", "good-token").Return(&auth.Claims{UserID: userID.String()}, nil)

		id := auth.NewAuthenticator(verifier, nil).Identify(ctx, "Bearer good-token")
		require.NotNil(t, id)
		assert.Equal(t, userID, id.UserID)
		verifier.AssertExpectations(t)
	})

	t.Run("missing header is anonymous", func(t *testing.T) {
		verifier := &mockVerifier{}
		assert.Nil(t, auth.NewAuthenticator(verifier, nil).Identify(ctx, ""))
		verifier.AssertNotCalled(t, "Verify", mock.Anything)
	})

	t.Run("non bearer scheme is anonymous", func(t *testing.T) {
		verifier := &mockVerifier{}
		assert.Nil(t, auth.NewAuthenticator(verifier, nil).Identify(ctx, "Basic dXNlcjpwYXNz"))
		verifier.AssertNotCalled(t, "Verify", mock.Anything)
	})

	t.Run("empty bearer token is anonymous", func(t *testing.T) {
		verifier := &mockVerifier{}
		assert.Nil(t, auth.NewAuthenticator(verifier, nil).Identify(ctx, "Bearer   "))
		verifier.AssertNotCalled(t, "Verify", mock.Anything)
	})

	t.Run("verification failure degrades to anonymous", func(t *testing.T) {
		verifier := &mockVerifier{}
		verifier.On("Verify", "expired").Return(nil, errors.New("token has expired"))

		assert.Nil(t, auth.NewAuthenticator(verifier, nil).Identify(ctx, "Bearer expired"))
	})

	t.Run("malformed user id degrades to anonymous", func(t *testing.T) {
		verifier := &mockVerifier{}
		verifier.On("Verify", "odd").Return(&auth.Claims{UserID: "not-a-ulid"}, nil)

		assert.Nil(t, auth.NewAuthenticator(verifier, nil).Identify(ctx, "Bearer odd"))
	})
}

func TestAuthenticator_MiddlewareWithRealTokens(t *testing.T) {
	tokens, err := auth.NewTokenManager("middleware-secret", time.Hour)
	require.NoError(t, err)
	authn := auth.NewAuthenticator(tokens, nil)

	userID := ulid.Make()
	token, _, err := tokens.Sign(userID.String())
	require.NoError(t, err)

	var seen *auth.Identity
	handler := authn.Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = auth.IdentityFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, seen)
	assert.Equal(t, userID, seen.UserID)

	req = httptest.NewRequest(http.MethodPost, "/graphql", nil)
	req.Header.Set("Authorization", "Bearer tampered"+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Nil(t, seen)
}

func TestIdentityFrom_EmptyContext(t *testing.T) {
	assert.Nil(t, auth.IdentityFrom(context.Background()))
}
