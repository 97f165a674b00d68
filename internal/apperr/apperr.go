// Package apperr classifies errors by how a caller should react to them.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthorized
	KindForbidden
	// KindPersistence is a storage or transaction fault. The operation had
	// no effect and may be retried.
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindPersistence:
		return "persistence"
	default:
		return "internal"
	}
}

// HTTPStatus maps a kind onto a response status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error attaches a Kind to an underlying error.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

func Validation(err error) error   { return wrap(KindValidation, err) }
func NotFound(err error) error     { return wrap(KindNotFound, err) }
func Conflict(err error) error     { return wrap(KindConflict, err) }
func Unauthorized(err error) error { return wrap(KindUnauthorized, err) }
func Forbidden(err error) error    { return wrap(KindForbidden, err) }
func Persistence(err error) error  { return wrap(KindPersistence, err) }

// KindOf returns the kind of the outermost classified error in err's chain,
// or KindInternal when none is found.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsRetryable reports whether repeating the operation may succeed.
func IsRetryable(err error) bool {
	return KindOf(err) == KindPersistence
}

// PublicMessage is the text safe to show a client. Internal and persistence
// faults never expose their cause.
func PublicMessage(err error) string {
	switch KindOf(err) {
	case KindInternal, KindPersistence:
		return "Server error. Please try again."
	default:
		return err.Error()
	}
}
