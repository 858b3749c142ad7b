// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

// Package pubsub fans chat events out to subscribers.
//
// Every event goes to two places: a Redis channel for other processes, and
// an in-process Broadcaster topic that feeds this process's GraphQL
// subscriptions. Delivery is at-most-once with no persistence or replay.
package pubsub
