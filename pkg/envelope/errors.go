// Package envelope provides the uniform JSON error envelope and the
// structured HTTP failure type that operations raise to pick a status.
package envelope

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Type values carried in Envelope.Type.
const (
	TypeHTTPException = "HTTPException"
	TypeUnknownError  = "UnknownError"
)

// Envelope is the JSON body of every failure response.
type Envelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// HTTPError is an expected failure with an explicit status and message.
// Anything raised as an HTTPError is surfaced to the client verbatim.
type HTTPError struct {
	Status  int
	Message string
	Cause   error
}

func (e *HTTPError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Message, e.Cause)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Cause
}

// Envelope returns the client-visible body for the error.
func (e *HTTPError) Envelope() Envelope {
	return Envelope{
		Error:   "Server Error",
		Message: e.Message,
		Type:    TypeHTTPException,
	}
}

// New creates an HTTPError. A status outside 400-599 is coerced to 500.
func New(status int, message string) *HTTPError {
	if status < 400 || status > 599 {
		status = http.StatusInternalServerError
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return &HTTPError{Status: status, Message: message}
}

// Newf creates an HTTPError with a formatted message.
func Newf(status int, format string, args ...any) *HTTPError {
	return New(status, fmt.Sprintf(format, args...))
}

// Wrap creates an HTTPError that keeps cause for logging.
func Wrap(status int, message string, cause error) *HTTPError {
	e := New(status, message)
	e.Cause = cause
	return e
}

// As reports whether err is (or wraps) an HTTPError and returns it.
func As(err error) (*HTTPError, bool) {
	var he *HTTPError
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}

// Unknown returns the fixed body used for unexpected failures.
// The underlying error is never part of it.
func Unknown() Envelope {
	return Envelope{
		Error:   "Unknown Error",
		Message: "An unexpected error occurred",
		Type:    TypeUnknownError,
	}
}

// Common constructors

// BadRequest creates a 400 error.
func BadRequest(message string) *HTTPError {
	return New(http.StatusBadRequest, message)
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *HTTPError {
	if message == "" {
		message = "Authentication required"
	}
	return New(http.StatusUnauthorized, message)
}

// Forbidden creates a 403 error.
func Forbidden(message string) *HTTPError {
	if message == "" {
		message = "Access denied"
	}
	return New(http.StatusForbidden, message)
}

// NotFound creates a 404 error for the named resource.
func NotFound(resource string) *HTTPError {
	return Newf(http.StatusNotFound, "The requested %s was not found", resource)
}

// MethodNotAllowed creates a 405 error listing the accepted methods.
func MethodNotAllowed(method string, allowed []string) *HTTPError {
	if len(allowed) == 0 {
		return Newf(http.StatusMethodNotAllowed, "The %s method is not allowed for this resource", method)
	}
	return Newf(http.StatusMethodNotAllowed, "%s is not supported. Use one of: %s", method, strings.Join(allowed, ", "))
}

// Conflict creates a 409 error.
func Conflict(message string) *HTTPError {
	return New(http.StatusConflict, message)
}

// TooManyRequests creates a 429 error.
func TooManyRequests(message string) *HTTPError {
	if message == "" {
		message = "Rate limit exceeded"
	}
	return New(http.StatusTooManyRequests, message)
}
