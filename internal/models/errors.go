package models

import (
	"errors"
	"net/http"
)

// ErrorKind classifies ledger, review and chat failures
type ErrorKind string

const (
	KindNotFound     ErrorKind = "not_found"
	KindForbidden    ErrorKind = "forbidden"
	KindConflict     ErrorKind = "conflict"
	KindInvalidInput ErrorKind = "invalid_input"
	KindInvalidState ErrorKind = "invalid_state"
	KindUnavailable  ErrorKind = "unavailable"
	KindInternal     ErrorKind = "internal"
)

// StatusCode maps the kind onto the HTTP status returned to clients
func (k ErrorKind) StatusCode() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindInvalidState:
		return http.StatusUnprocessableEntity
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// AppError is the typed error returned by every ledger and review operation
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status for this error
func (e *AppError) StatusCode() int { return e.Kind.StatusCode() }

func NewNotFound(msg string) error     { return &AppError{Kind: KindNotFound, Message: msg} }
func NewForbidden(msg string) error    { return &AppError{Kind: KindForbidden, Message: msg} }
func NewConflict(msg string) error     { return &AppError{Kind: KindConflict, Message: msg} }
func NewInvalidInput(msg string) error { return &AppError{Kind: KindInvalidInput, Message: msg} }
func NewInvalidState(msg string) error { return &AppError{Kind: KindInvalidState, Message: msg} }

// NewUnavailable wraps a failing external collaborator
func NewUnavailable(msg string, err error) error {
	return &AppError{Kind: KindUnavailable, Message: msg, Err: err}
}

// NewInternal wraps an unexpected persistence or runtime failure
func NewInternal(msg string, err error) error {
	return &AppError{Kind: KindInternal, Message: msg, Err: err}
}

// Sentinel errors returned by the stores and translated by the services
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// KindOf returns the kind of err, or KindInternal for untyped errors
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}
