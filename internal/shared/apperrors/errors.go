// Package apperrors defines the error kinds surfaced by the booking and
// wallet services. Transport code maps a Kind to a response status.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindAuthentication    Kind = "authentication"
	KindAuthorization     Kind = "authorization"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindInternal          Kind = "internal"
)

// IsValid checks if the kind is one of the known kinds
func (k Kind) IsValid() bool {
	switch k {
	case KindValidation, KindNotFound, KindConflict, KindAuthentication, KindAuthorization, KindInsufficientFunds, KindInternal:
		return true
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}

// Error carries a Kind, a human readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind with no message,
// which lets callers write errors.Is(err, apperrors.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Kind markers for errors.Is checks
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrAuthentication    = &Error{Kind: KindAuthentication}
	ErrAuthorization     = &Error{Kind: KindAuthorization}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds}
	ErrInternal          = &Error{Kind: KindInternal}
)

func newError(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

func Validation(cause error, format string, args ...interface{}) *Error {
	return newError(KindValidation, cause, format, args...)
}

func NotFound(cause error, format string, args ...interface{}) *Error {
	return newError(KindNotFound, cause, format, args...)
}

func Conflict(cause error, format string, args ...interface{}) *Error {
	return newError(KindConflict, cause, format, args...)
}

// Unauthenticated is for callers whose identity could not be established
func Unauthenticated(cause error, format string, args ...interface{}) *Error {
	return newError(KindAuthentication, cause, format, args...)
}

func Forbidden(cause error, format string, args ...interface{}) *Error {
	return newError(KindAuthorization, cause, format, args...)
}

func InsufficientFunds(cause error, format string, args ...interface{}) *Error {
	return newError(KindInsufficientFunds, cause, format, args...)
}

func Internal(cause error, format string, args ...interface{}) *Error {
	return newError(KindInternal, cause, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain.
// Errors without one are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf returns the message of the first *Error in err's chain, or a
// generic message for unclassified errors so storage details never leak.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindInternal {
		return appErr.Message
	}
	return "Internal server error"
}
