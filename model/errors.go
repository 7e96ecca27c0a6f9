package model

import (
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	RequiredPropertyMissing ErrorKind = "RequiredPropertyMissing"
	InvalidParam            ErrorKind = "InvalidParam"
	Unauthorized            ErrorKind = "Unauthorized"
	Forbidden               ErrorKind = "Forbidden"
	NotFound                ErrorKind = "NotFound"
	NotSaved                ErrorKind = "NotSaved"
)

// StatusCode is the HTTP status reported for errors of this kind.
func (k ErrorKind) StatusCode() int {
	switch k {
	case RequiredPropertyMissing, InvalidParam:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error carrying its kind. errors.Is matches any *Error of
// the same kind against the Err* sentinels below.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

var (
	ErrRequiredPropertyMissing = &Error{Kind: RequiredPropertyMissing}
	ErrInvalidParam            = &Error{Kind: InvalidParam}
	ErrUnauthorized            = &Error{Kind: Unauthorized}
	ErrForbidden               = &Error{Kind: Forbidden}
	ErrNotFound                = &Error{Kind: NotFound}
	ErrNotSaved                = &Error{Kind: NotSaved}
)

func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) StatusCode() int {
	return e.Kind.StatusCode()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func requiredPropertyMissing(kind Kind, field string) *Error {
	return NewError(RequiredPropertyMissing, "%s: required property %q missing", kind, field)
}

func notFound(key string) *Error {
	return NewError(NotFound, "%s not found", key)
}
