// Package apperr defines the error taxonomy shared by all domain services.
// Handlers return these errors untouched; the central HTTP error handler maps
// each kind to its status code.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindSlotUnavailable
	KindInvalidTransition
	KindInsufficientStock
	KindNotFound
)

// Error is a domain error with a caller-safe message.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func Validation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func SlotUnavailable(message string) error {
	return &Error{Kind: KindSlotUnavailable, Message: message}
}

func InvalidTransition(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

func InsufficientStock(format string, args ...interface{}) error {
	return &Error{Kind: KindInsufficientStock, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a domain error without leaking it to clients.
func Wrap(err error, kind Kind, message string) error {
	return &Error{Kind: kind, Message: message, cause: err}
}

// KindOf returns the kind of err, or 0 when err is not a domain error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// HTTPStatus maps a domain error kind to its response status. Unknown errors
// map to 500.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindSlotUnavailable, KindInvalidTransition, KindInsufficientStock:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
