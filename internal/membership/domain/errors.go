package domain

import (
	"errors"
	"fmt"
)

// Kind classifies membership failures so transports can translate them.
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindUnauthorized       Kind = "unauthorized"
	KindInvariantViolation Kind = "invariant_violation"
	KindInvalidState       Kind = "invalid_state"
	KindAlreadyAccepted    Kind = "already_accepted"
	KindInvalidPermission  Kind = "invalid_permission"
	KindInvalidInput       Kind = "invalid_input"
)

// Error is a typed membership failure. Two errors match under errors.Is when their kinds match.
// AlreadyAccepted also matches InvalidState.
type Error struct {
	Kind    Kind
	Message string
	// Permission is the offending identifier for KindInvalidPermission.
	Permission string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == e.Kind {
		return true
	}
	return e.Kind == KindAlreadyAccepted && t.Kind == KindInvalidState
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "not found"}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrInvariantViolation = &Error{Kind: KindInvariantViolation, Message: "invariant violation"}
	ErrInvalidState       = &Error{Kind: KindInvalidState, Message: "invalid state"}
	ErrAlreadyAccepted    = &Error{Kind: KindAlreadyAccepted, Message: "invitation already accepted"}
	ErrInvalidPermission  = &Error{Kind: KindInvalidPermission, Message: "invalid permission"}
	ErrInvalidInput       = &Error{Kind: KindInvalidInput, Message: "invalid input"}
)

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

func Unauthorized(format string, args ...any) *Error {
	return newError(KindUnauthorized, format, args...)
}

func InvariantViolation(format string, args ...any) *Error {
	return newError(KindInvariantViolation, format, args...)
}

func InvalidState(format string, args ...any) *Error {
	return newError(KindInvalidState, format, args...)
}

func AlreadyAccepted(format string, args ...any) *Error {
	return newError(KindAlreadyAccepted, format, args...)
}

func InvalidInput(format string, args ...any) *Error {
	return newError(KindInvalidInput, format, args...)
}

// InvalidPermission reports an identifier that is not in the catalog.
func InvalidPermission(raw string) *Error {
	return &Error{
		Kind:       KindInvalidPermission,
		Message:    fmt.Sprintf("unknown permission %q", raw),
		Permission: raw,
	}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
