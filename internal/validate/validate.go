// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

// Package validate holds the field rules applied to user input before it
// reaches the store. Each rule set reports only its first violation.
package validate

import (
	"regexp"
	"unicode"
	"unicode/utf8"

	"github.com/samber/oops"
)

// CodeValidationFailed is the oops code carried by every validation error.
const CodeValidationFailed = "VALIDATION_FAILED"

// Field length limits.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 20
	MinPasswordLength = 8
	MaxPasswordLength = 20
	MinRoomNameLength = 3
	MaxRoomNameLength = 20
	MinRoomIDLength   = 3
	MaxRoomIDLength   = 20
	MaxMessageLength  = 400
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)

// rule is a single check; msg is surfaced verbatim when ok returns false.
type rule struct {
	ok  func(string) bool
	msg string
}

func check(field, value string, rules ...rule) error {
	for _, r := range rules {
		if !r.ok(value) {
			return oops.Code(CodeValidationFailed).
				With("field", field).
				Errorf("%s", r.msg)
		}
	}
	return nil
}

// Lengths are counted in runes, so an astral-plane character counts once.
func minLen(n int) func(string) bool {
	return func(s string) bool { return utf8.RuneCountInString(s) >= n }
}

func maxLen(n int) func(string) bool {
	return func(s string) bool { return utf8.RuneCountInString(s) <= n }
}

// Username checks length and the alphanumeric/underscore pattern.
func Username(username string) error {
	return check("username", username,
		rule{minLen(MinUsernameLength), "Username must be at least 3 characters"},
		rule{maxLen(MaxUsernameLength), "Username must be at most 20 characters"},
		rule{usernameRegex.MatchString, "Username must be alphanumeric and contain at least 3 characters"},
	)
}

// Password requires 8-20 ASCII letters and digits with at least one
// lowercase letter, one uppercase letter and one digit.
func Password(password string) error {
	return check("password", password,
		rule{minLen(MinPasswordLength), "Password must be at least 8 characters"},
		rule{strongPassword, "Password must contain at least one uppercase letter, one lowercase letter, and one number"},
	)
}

func strongPassword(s string) bool {
	if len(s) < MinPasswordLength || len(s) > MaxPasswordLength {
		return false
	}
	var lower, upper, digit bool
	for _, c := range s {
		switch {
		case c > unicode.MaxASCII:
			return false
		case unicode.IsLower(c):
			lower = true
		case unicode.IsUpper(c):
			upper = true
		case unicode.IsDigit(c):
			digit = true
		default:
			return false
		}
	}
	return lower && upper && digit
}

// Credentials validates username before password.
func Credentials(username, password string) error {
	if err := Username(username); err != nil {
		return err
	}
	return Password(password)
}

// RoomName checks the display name length.
func RoomName(name string) error {
	return check("name", name,
		rule{minLen(MinRoomNameLength), "Room Name must be at least 3 characters"},
		rule{maxLen(MaxRoomNameLength), "Room Name must be at most 20 characters"},
	)
}

// RoomID checks the external room identifier length.
func RoomID(roomID string) error {
	return check("roomId", roomID,
		rule{minLen(MinRoomIDLength), "Room Id must be at least 3 characters"},
		rule{maxLen(MaxRoomIDLength), "Room Id must be at most 20 characters"},
	)
}

// Room validates name before roomID.
func Room(name, roomID string) error {
	if err := RoomName(name); err != nil {
		return err
	}
	return RoomID(roomID)
}

// MessageContent caps message length. Empty content is allowed.
func MessageContent(content string) error {
	return check("content", content,
		rule{maxLen(MaxMessageLength), "Message must be at most 400 characters"},
	)
}
