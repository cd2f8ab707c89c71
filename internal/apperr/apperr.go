// Package apperr defines the error kinds surfaced to API and socket clients.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindStore Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindUpstream
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindUnauthorized:
		return "Unauthorized"
	case KindForbidden:
		return "Forbidden"
	case KindNotFound:
		return "NotFound"
	case KindConflict:
		return "Conflict"
	case KindUpstream:
		return "UpstreamError"
	case KindRateLimited:
		return "RateLimited"
	default:
		return "StoreError"
	}
}

// HTTPStatus returns the response code used for this kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusBadGateway
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a kind, a localization key and a client-safe message.
// Err is the internal cause and is never shown to clients outside development mode.
type Error struct {
	Kind    Kind
	Key     string
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

// Is matches another *Error by kind, so errors.Is(err, apperr.ErrForbidden) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Key == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrStore        = &Error{Kind: KindStore}
	ErrUpstream     = &Error{Kind: KindUpstream}
)

func New(kind Kind, key, msg string) *Error {
	return &Error{Kind: kind, Key: key, Message: msg}
}

func Validation(key, msg string) *Error { return New(KindValidation, key, msg) }
func Unauthorized(key, msg string) *Error { return New(KindUnauthorized, key, msg) }
func Forbidden(key, msg string) *Error { return New(KindForbidden, key, msg) }
func NotFound(key, msg string) *Error { return New(KindNotFound, key, msg) }
func Conflict(key, msg string) *Error { return New(KindConflict, key, msg) }
func RateLimited(key, msg string) *Error { return New(KindRateLimited, key, msg) }

// Store wraps a persistence failure.
func Store(err error) *Error {
	return &Error{Kind: KindStore, Key: "error.store", Message: "storage failure", Err: err}
}

// Upstream wraps a failure of an external collaborator such as the SMS gateway.
func Upstream(key, msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Key: key, Message: msg, Err: err}
}

// From returns err as *Error, wrapping unknown errors as store failures.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Store(err)
}

// KindOf reports the kind of err; unknown errors are store failures.
func KindOf(err error) Kind {
	return From(err).Kind
}
