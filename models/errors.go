package models

import (
	"errors"
	"fmt"
)

type ErrKind string

const (
	KindValidation   ErrKind = "validation_error"
	KindNotFound     ErrKind = "not_found"
	KindUnauthorized ErrKind = "unauthorized"
	KindConflict     ErrKind = "conflict"
	KindStore        ErrKind = "store_error"
)

// AppError carries a kind the transport layer maps to a status code and a
// message that is safe to return to callers.
type AppError struct {
	Kind    ErrKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

func ErrValidation(msg string) error   { return &AppError{Kind: KindValidation, Message: msg} }
func ErrNotFound(msg string) error     { return &AppError{Kind: KindNotFound, Message: msg} }
func ErrUnauthorized(msg string) error { return &AppError{Kind: KindUnauthorized, Message: msg} }
func ErrConflict(msg string) error     { return &AppError{Kind: KindConflict, Message: msg} }

// ErrStore wraps a persistence failure.
func ErrStore(msg string, err error) error {
	return &AppError{Kind: KindStore, Message: msg, Err: err}
}

// KindOf returns the kind of the first AppError in err's chain, or "" if there is none.
func KindOf(err error) ErrKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// MessageOf returns the client-facing message of err.
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Internal server error"
}
