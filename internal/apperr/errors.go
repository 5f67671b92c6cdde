// Package apperr defines the error taxonomy shared by the marketplace core and
// its HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// Kind classifies a failure so the caller can map it to a transport code.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindValidation
	KindPrecondition
	KindDuplicate
	KindInvalidMatch
	KindRateLimited
)

var kindNames = map[Kind]string{
	KindInternal:        "Internal",
	KindUnauthenticated: "Unauthenticated",
	KindForbidden:       "Forbidden",
	KindNotFound:        "NotFound",
	KindValidation:      "ValidationFailed",
	KindPrecondition:    "PreconditionFailed",
	KindDuplicate:       "DuplicateRequest",
	KindInvalidMatch:    "InvalidMatch",
	KindRateLimited:     "RateLimited",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is a classified failure. Message is safe to show to API clients;
// Err carries the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New returns a classified error without a cause.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap classifies err. A nil err yields nil.
func Wrap(err error, kind Kind, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Unauthenticated(msg string) error { return New(KindUnauthenticated, msg) }
func Forbidden(msg string) error       { return New(KindForbidden, msg) }
func NotFound(msg string) error        { return New(KindNotFound, msg) }
func Validation(msg string) error      { return New(KindValidation, msg) }
func Precondition(msg string) error    { return New(KindPrecondition, msg) }
func Duplicate(msg string) error       { return New(KindDuplicate, msg) }
func InvalidMatch(msg string) error    { return New(KindInvalidMatch, msg) }
func RateLimited(msg string) error     { return New(KindRateLimited, msg) }

// KindOf returns the classification of err. Unclassified gorm sentinels are
// mapped to their natural kind; everything else is Internal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return KindNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return KindDuplicate
	}
	return KindInternal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the client-safe message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	switch KindOf(err) {
	case KindNotFound:
		return "not found"
	case KindDuplicate:
		return "duplicate record"
	}
	return "internal server error"
}

// HTTPStatus maps a kind to its HTTP status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindPrecondition, KindDuplicate:
		return http.StatusConflict
	case KindInvalidMatch:
		return http.StatusUnprocessableEntity
	case KindRateLimited:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}
