// Package apierror provides the HTTP error type rendered in the errors envelope.
package apierror

import (
	"fmt"
	"net/http"
)

// Error is an error carrying the HTTP status it is reported with.
type Error struct {
	code    int
	message string
	cause   error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the HTTP status code.
func (e *Error) Code() int { return e.code }

// Message returns the error message without the cause.
func (e *Error) Message() string { return e.message }

// Unwrap returns the underlying cause for errors.As/errors.Is support.
func (e *Error) Unwrap() error { return e.cause }

// New creates a new HTTP error with the given code and message.
func New(code int, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap wraps an underlying error with an HTTP error.
func Wrap(code int, message string, cause error) *Error {
	return &Error{code: code, message: message, cause: cause}
}

// BadRequest wraps a failed operation; the cause's text is the message.
func BadRequest(cause error) *Error {
	return &Error{code: http.StatusBadRequest, message: cause.Error(), cause: cause}
}

// NotFound creates a 404 Not Found error.
func NotFound(message string) *Error {
	return &Error{code: http.StatusNotFound, message: message}
}

// Forbidden creates a 403 Forbidden error.
func Forbidden(message string) *Error {
	return &Error{code: http.StatusForbidden, message: message}
}

// MethodNotAllowed creates a 405 Method Not Allowed error.
func MethodNotAllowed(message string) *Error {
	return &Error{code: http.StatusMethodNotAllowed, message: message}
}
