// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

// Package auth provides the credential primitives and request identity for Parley.
//
// # Primitives
//
//   - PasswordHasher / Argon2idHasher - argon2id hashing, bcrypt verification for imported accounts
//   - TokenManager - HS256 bearer tokens carrying a userId claim
//
// # Request identity
//
// Authenticator derives an Identity from the Authorization header. Invalid,
// expired or missing tokens produce a nil Identity rather than an error, so
// resolvers only ever see "authenticated" or "anonymous".
package auth
