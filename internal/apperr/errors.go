// Package apperr is the error taxonomy shared by services and the HTTP boundary.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindInvalidArgument
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindPreconditionFailed
	KindConflict
	KindTimeout
	KindUnavailable
)

var kindInfo = map[Kind]struct {
	code   string
	status int
}{
	KindInternal:           {"INTERNAL", http.StatusInternalServerError},
	KindInvalidArgument:    {"INVALID_ARGUMENT", http.StatusBadRequest},
	KindUnauthorized:       {"UNAUTHORIZED", http.StatusUnauthorized},
	KindForbidden:          {"FORBIDDEN", http.StatusForbidden},
	KindNotFound:           {"NOT_FOUND", http.StatusNotFound},
	KindPreconditionFailed: {"PRECONDITION_FAILED", http.StatusPreconditionFailed},
	KindConflict:           {"CONFLICT", http.StatusConflict},
	KindTimeout:            {"TIMEOUT", http.StatusGatewayTimeout},
	KindUnavailable:        {"UNAVAILABLE", http.StatusServiceUnavailable},
}

// Code is the stable machine-readable code sent to API clients.
func (k Kind) Code() string { return kindInfo[k].code }

// HTTPStatus maps the kind onto a response status.
func (k Kind) HTTPStatus() int { return kindInfo[k].status }

func (k Kind) String() string { return k.Code() }

// Error carries a kind, a message safe to show the caller and an optional cause.
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

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func InvalidArgument(format string, args ...any) *Error {
	return New(KindInvalidArgument, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}

func PreconditionFailed(format string, args ...any) *Error {
	return New(KindPreconditionFailed, fmt.Sprintf(format, args...))
}

func Conflict(format string, args ...any) *Error {
	return New(KindConflict, fmt.Sprintf(format, args...))
}

func Internal(err error) *Error {
	return Wrap(KindInternal, "internal server error", err)
}

// KindOf reports the kind of err. Context errors are classified even when they
// were not wrapped by this package; anything unknown is internal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindUnavailable
	}
	return KindInternal
}

// Is reports whether err is of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// PublicMessage is the text returned to API callers. Internal failures never
// leak their cause.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal && e.Message != "" {
		return e.Message
	}
	switch KindOf(err) {
	case KindTimeout:
		return "data store timed out"
	case KindUnavailable:
		return "data store unavailable"
	}
	return "internal server error"
}
