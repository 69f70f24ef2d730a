// Package errors carries the typed failures services return and the HTTP
// shape each one takes at the edge.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeInsufficient  Code = "INSUFFICIENT_BALANCE"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

// Metadata is how a code surfaces over HTTP.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

// Metadata resolves the HTTP shape of c. Unknown codes render as internal errors.
func (c Code) Metadata() Metadata {
	switch c {
	case CodeValidation:
		return Metadata{http.StatusBadRequest, false, "validation failed", true}
	case CodeUnauthorized:
		return Metadata{http.StatusUnauthorized, false, "authentication required", false}
	case CodeForbidden:
		return Metadata{http.StatusForbidden, false, "access denied", false}
	case CodeNotFound:
		return Metadata{http.StatusNotFound, false, "resource not found", false}
	case CodeConflict:
		return Metadata{http.StatusConflict, false, "conflict detected", false}
	case CodeIdempotency:
		return Metadata{http.StatusConflict, false, "idempotency key reused", true}
	case CodeStateConflict:
		// a well-formed request refused by order item or wallet state
		return Metadata{http.StatusUnprocessableEntity, false, "state transition disallowed", true}
	case CodeInsufficient:
		return Metadata{http.StatusUnprocessableEntity, false, "insufficient balance", true}
	case CodeRateLimit:
		return Metadata{http.StatusTooManyRequests, true, "rate limit exceeded", false}
	case CodeDependency:
		return Metadata{http.StatusServiceUnavailable, true, "dependency unavailable", true}
	default:
		return Metadata{http.StatusInternalServerError, true, "internal server error", false}
	}
}

func MetadataFor(code Code) Metadata { return code.Metadata() }

// Error is a coded failure. The cause stays in logs and is never rendered.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to err. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return string(e.code) + ": " + e.message + ": " + e.cause.Error()
	default:
		return string(e.code) + ": " + e.message
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches another *Error by code and message, so package-level sentinels
// built with New work with errors.Is after wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.code == t.code && e.message == t.message
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
