// Package apperr carries client-visible failures from services to the HTTP
// layer. Anything that is not an *Error is treated as a server error.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindInvalid
	KindNotFound
)

// Error is a failure whose Message is safe to return to the client.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Invalid reports malformed or missing client input.
func Invalid(msg string) error {
	return &Error{Kind: KindInvalid, Message: msg}
}

// NotFound reports a missing target or parent row.
func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Wrap attaches a client message and kind to an underlying cause.
func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Status maps a kind to its HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindInvalid:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
