// Package apperror defines the typed errors services return and the HTTP
// boundary translates. Handlers never pick status codes themselves; they
// return an *Error and the echo error handler maps its Kind.
package apperror

import (
	"errors"
	"net/http"
)

// Kind classifies a failure. The string value is what clients see in the
// "erro" field of the error payload.
type Kind string

const (
	KindInvalidCredentials Kind = "invalid_credentials"
	KindForbidden          Kind = "forbidden"
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
	KindBadRequest         Kind = "bad_request"
	KindValidation         Kind = "validation_error"
	KindTooManyRequests    Kind = "too_many_requests"
	KindInternal           Kind = "internal_error"
)

// Status returns the HTTP status code for k.
func (k Kind) Status() int {
	switch k {
	case KindInvalidCredentials:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindBadRequest, KindValidation:
		return http.StatusBadRequest
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// FieldError is one violation of a multi-field validation.
type FieldError struct {
	Field   string `json:"campo"`
	Message string `json:"mensagem"`
}

// Error is the application error type.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an error of the given kind.
func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

// Wrap builds an error of the given kind that keeps err as its cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func InvalidCredentials(msg string) *Error { return New(KindInvalidCredentials, msg) }
func Forbidden(msg string) *Error          { return New(KindForbidden, msg) }
func NotFound(msg string) *Error           { return New(KindNotFound, msg) }
func Conflict(msg string) *Error           { return New(KindConflict, msg) }
func BadRequest(msg string) *Error         { return New(KindBadRequest, msg) }

// Internal hides err from clients behind a generic message.
func Internal(err error) *Error {
	return Wrap(KindInternal, "internal server error", err)
}

// Validation reports every violated field at once.
func Validation(fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: "invalid fields", Fields: fields}
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
