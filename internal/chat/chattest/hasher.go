// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package chattest

import (
	"strings"

	"github.com/samber/oops"
)

// LegacyPrefix marks hashes that PlainHasher reports as needing an upgrade.
const LegacyPrefix = "legacy:"

// PlainHasher is a fast, insecure chat password hasher for tests. Hashes are
// "plain:<password>"; "legacy:<password>" also verifies.
type PlainHasher struct{}

// Hash implements auth.PasswordHasher.
func (PlainHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")
	}
	return "plain:" + password, nil
}

// Verify implements auth.PasswordHasher.
func (PlainHasher) Verify(password, hash string) (bool, error) {
	switch {
	case strings.HasPrefix(hash, "plain:"):
		return hash == "plain:"+password, nil
	case strings.HasPrefix(hash, LegacyPrefix):
		return hash == LegacyPrefix+password, nil
	default:
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("unknown hash format")
	}
}

// NeedsUpgrade implements auth.PasswordHasher.
func (PlainHasher) NeedsUpgrade(hash string) bool {
	return strings.HasPrefix(hash, LegacyPrefix)
}
