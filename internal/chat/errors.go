// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package chat

import (
	"errors"

	"github.com/samber/oops"

	"github.com/parleyhq/parley/internal/validate"
)

// Sentinel errors wrapped by repository implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a write violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate")
)

// Error codes for outcomes the caller is told about verbatim.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeConflict     = "CONFLICT"
)

// Messages surfaced to API callers.
const (
	MsgUnauthorized    = "Unauthorized"
	MsgInternalError   = "Internal server error"
	MsgUserExists      = "User already exists with this username"
	MsgRoomExists      = "Room already exists with this roomId"
	MsgUserNotFound    = "User not found"
	MsgRoomNotFound    = "Room not found"
	MsgAlreadyJoined   = "User already joined this room"
	MsgNotInRoom       = "User not found in this room"
	MsgInvalidPassword = "Invalid password"
)

// Kind is the outcome class of a service call.
type Kind int

const (
	// KindOK means the call succeeded.
	KindOK Kind = iota
	// KindUnauthorized means an identity was required and absent.
	KindUnauthorized
	// KindValidation means input failed a format rule.
	KindValidation
	// KindConflict means an existence or uniqueness precondition failed.
	KindConflict
	// KindInternal covers everything unexpected.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindUnauthorized:
		return "unauthorized"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

var errUnauthorized = oops.Code(CodeUnauthorized).Errorf(MsgUnauthorized)

func conflict(msg string) error {
	return oops.Code(CodeConflict).Errorf("%s", msg)
}

// Classify maps a service error to its Kind and the message shown to callers.
// Internal errors never leak their text.
func Classify(err error) (Kind, string) {
	if err == nil {
		return KindOK, ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return KindInternal, MsgInternalError
	}
	switch oopsErr.Code() {
	case CodeUnauthorized:
		return KindUnauthorized, MsgUnauthorized
	case validate.CodeValidationFailed:
		return KindValidation, oopsErr.Error()
	case CodeConflict:
		return KindConflict, oopsErr.Error()
	default:
		return KindInternal, MsgInternalError
	}
}
