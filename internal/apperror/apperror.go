// Package apperror is the error taxonomy shared by services and handlers.
// Services return these kinds; handlers map them onto HTTP statuses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindUnexpected Kind = iota
	KindValidation
	KindAuth
	KindNotFound
	KindBusinessRule
)

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status is the HTTP status code for the error kind.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation, KindBusinessRule:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func Validation(message string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

func Auth(message string) *Error {
	return &Error{Kind: KindAuth, Message: message}
}

// NotFound covers both missing resources and resources owned by someone else.
func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: resource + " not found"}
}

func BusinessRule(message string) *Error {
	return &Error{Kind: KindBusinessRule, Message: message}
}

func Unexpected(message string, err error) *Error {
	return &Error{Kind: KindUnexpected, Message: message, Err: err}
}

// As extracts an *Error from err. Anything else is reported as unexpected.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Unexpected("internal server error", err)
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
