package errors

import (
	"fmt"
	"net/http"
)

// Category groups related codes.
type Category string

const (
	CategoryResolve  Category = "resolve"
	CategoryDecode   Category = "decode"
	CategoryInvoke   Category = "invoke"
	CategoryStream   Category = "stream"
	CategoryConfig   Category = "config"
	CategoryInternal Category = "internal"
)

// Error is a coded error.
type Error struct {
	// Code is a unique error identifier (e.g., "E101").
	Code string

	// Category is the error group.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Status is the HTTP status the error is answered with.
	Status int

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Wrapped != nil {
		msg = e.Wrapped.Error()
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Public is the message sent to clients: the wrapped error's text when
// there is one, since sentinel chains are written for operators and carry
// no secrets, else the registered message.
func (e *Error) Public() string {
	if e.Wrapped != nil {
		return e.Wrapped.Error()
	}
	return e.Message
}

// WithDetail adds a detailed explanation to the error.
func (e *Error) WithDetail(d string) *Error {
	e.Detail = d
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// Wrap wraps another error.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

// New creates an Error from a registered code.
func New(code string) *Error {
	template, ok := registry[code]
	if !ok {
		return &Error{
			Code:     code,
			Category: CategoryInternal,
			Message:  "Unknown error",
			Status:   http.StatusInternalServerError,
		}
	}
	return &Error{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		Status:   template.Status,
	}
}

// Newf creates an uncoded Error with a formatted message.
func Newf(category Category, format string, args ...any) *Error {
	return &Error{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
		Status:   http.StatusInternalServerError,
	}
}
