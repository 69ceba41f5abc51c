// Package errs is the client-visible error taxonomy. Every failure that reaches the
// HTTP edge is translated into one Kind, which fixes the status code and the
// machine-readable code of the response.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindAuthenticationFailed
	KindAuthenticationRequired
	KindAccessDenied
	KindNotFound
	KindInvalidPath
	KindBadRequest
	KindLengthRequired
	KindConflict
	KindStorage
)

var kindInfo = map[Kind]struct {
	status int
	code   string
}{
	KindInternal:               {http.StatusInternalServerError, "internal_error"},
	KindAuthenticationFailed:   {http.StatusUnauthorized, "auth_failed"},
	KindAuthenticationRequired: {http.StatusUnauthorized, "authentication_required"},
	KindAccessDenied:           {http.StatusForbidden, "access_denied"},
	KindNotFound:               {http.StatusNotFound, "not_found"},
	KindInvalidPath:            {http.StatusBadRequest, "invalid_path"},
	KindBadRequest:             {http.StatusBadRequest, "bad_request"},
	KindLengthRequired:         {http.StatusLengthRequired, "length_required"},
	KindConflict:               {http.StatusConflict, "conflict"},
	KindStorage:                {http.StatusBadGateway, "storage_error"},
}

// Status is the HTTP status code for the kind.
func (k Kind) Status() int {
	return kindInfo[k].status
}

// Code is the short machine-readable code for the kind.
func (k Kind) Code() string {
	return kindInfo[k].code
}

func (k Kind) String() string {
	return k.Code()
}

// Error carries a Kind, a message that is safe to show to callers, and an
// optional cause that is only ever logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind.Code(), e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind.Code(), e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so errors.Is(err, errs.ErrNotFound) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Kind sentinels for errors.Is.
var (
	ErrAuthenticationFailed   = &Error{Kind: KindAuthenticationFailed}
	ErrAuthenticationRequired = &Error{Kind: KindAuthenticationRequired}
	ErrAccessDenied           = &Error{Kind: KindAccessDenied}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrInvalidPath            = &Error{Kind: KindInvalidPath}
	ErrBadRequest             = &Error{Kind: KindBadRequest}
	ErrConflict               = &Error{Kind: KindConflict}
)

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func AuthenticationFailed(format string, args ...interface{}) *Error {
	return New(KindAuthenticationFailed, format, args...)
}

func AuthenticationRequired(format string, args ...interface{}) *Error {
	return New(KindAuthenticationRequired, format, args...)
}

func AccessDenied(format string, args ...interface{}) *Error {
	return New(KindAccessDenied, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return New(KindNotFound, format, args...)
}

func InvalidPath(format string, args ...interface{}) *Error {
	return New(KindInvalidPath, format, args...)
}

func BadRequest(format string, args ...interface{}) *Error {
	return New(KindBadRequest, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return New(KindConflict, format, args...)
}

// KindOf reports the Kind of err, or KindInternal for errors outside the taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
