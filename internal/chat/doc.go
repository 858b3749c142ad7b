// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

// Package chat implements users, rooms, memberships and messages.
//
// Service methods return typed results and oops-coded errors. Classify turns
// any such error into the outcome shown to API callers; internal failures are
// reported only as "Internal server error".
//
// Storage is behind the repository interfaces in this package; see
// chat/postgres for the database implementation and chat/chattest for the
// in-memory fake used in tests.
package chat
