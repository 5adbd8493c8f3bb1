// Package services holds the multi-step operations of the application:
// event lifecycle, label resolution, moderation, accounts, comments and the
// password reset flow. Handlers translate its errors into HTTP responses.
package services

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrValidation            = errors.New("validation failed")
	ErrNotFound              = errors.New("not found")
	ErrUnknownUser           = errors.New("unknown user")
	ErrForbidden             = errors.New("forbidden")
	ErrConflict              = errors.New("conflict")
	ErrDuplicateReport       = errors.New("event already reported by this user")
	ErrEmailTaken            = errors.New("email already registered")
	ErrGeocodeUnavailable    = errors.New("could not resolve address")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrResolution            = errors.New("label resolution failed")
	ErrStorage               = errors.New("storage failure")
)

// Error carries the kind the caller should branch on, the operation that
// failed and the underlying cause, which is for logs only.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.Error()
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func fail(kind error, op string, cause error) error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// KindOf returns the kind of err, or ErrStorage for anything unclassified.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrStorage
}
