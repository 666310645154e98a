// Package apperror defines the error kinds shared by all domains.
//
// Every domain error carries exactly one kind so transport adapters can map it
// to a status code with errors.Is, without knowing the individual sentinels.
package apperror

import "errors"

// Error kinds
var (
	ErrValidation  = errors.New("validation failed")
	ErrForbidden   = errors.New("forbidden")
	ErrNotFound    = errors.New("not found")
	ErrPersistence = errors.New("persistence failure")
)

// Error is a domain error tagged with a kind and an optional cause
type Error struct {
	kind  error
	msg   string
	cause error
}

// Error returns the human-readable message, followed by the cause if any
func (e *Error) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As
func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.kind, e.cause}
	}
	return []error{e.kind}
}

// Validation creates a validation error
func Validation(msg string) *Error {
	return &Error{kind: ErrValidation, msg: msg}
}

// Forbidden creates an authorization error
func Forbidden(msg string) *Error {
	return &Error{kind: ErrForbidden, msg: msg}
}

// NotFound creates a not-found error
func NotFound(msg string) *Error {
	return &Error{kind: ErrNotFound, msg: msg}
}

// Persistence wraps a store failure
func Persistence(op string, err error) *Error {
	return &Error{kind: ErrPersistence, msg: op, cause: err}
}

// KindOf returns the kind of err, or nil when err carries none
func KindOf(err error) error {
	for _, kind := range []error{ErrValidation, ErrForbidden, ErrNotFound, ErrPersistence} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// PublicMessage returns the message that is safe to show to API clients.
// Persistence failures and unknown errors never expose their cause.
func PublicMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.kind != ErrPersistence {
		return appErr.msg
	}
	return "internal server error"
}
