// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

// Package graph exposes the chat service as a GraphQL API over HTTP and the
// graphql-transport-ws websocket protocol.
//
// Every query and mutation answers with a {success, message, ...} envelope;
// chat errors never surface as GraphQL errors. Subscriptions read from the
// in-process broadcaster and end when the client goes away.
package graph
