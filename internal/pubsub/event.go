// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package pubsub

// Event is a single notification. Channel names the distributed channel and
// Topic the in-process one; either may be empty to skip that transport.
type Event struct {
	Channel string
	Topic   string
	Payload any
}
