// Package errors carries the error envelope shared by the HTTP and event
// surfaces: a machine-readable code, a client-safe message and the status
// it maps to.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels classify errors independently of their code.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrServiceUnavail = errors.New("service unavailable")
	ErrTooManyRequest = errors.New("too many requests")
	ErrUnsupported    = errors.New("operation not supported")
)

// AppError is an error with a stable code and an HTTP status.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

func newAppError(status int, code, message string, sentinel, cause error) *AppError {
	err := sentinel
	if cause != nil {
		err = fmt.Errorf("%w: %w", cause, sentinel)
	}
	return &AppError{Code: code, Message: message, Status: status, Err: err}
}

// InvalidInput creates a 400 INVALID_INPUT error.
func InvalidInput(message string) *AppError {
	return newAppError(http.StatusBadRequest, "INVALID_INPUT", message, ErrInvalidInput, nil)
}

// Validation creates a 400 error with a caller-chosen code. It matches both
// cause and ErrInvalidInput.
func Validation(code, message string, cause error) *AppError {
	return newAppError(http.StatusBadRequest, code, message, ErrInvalidInput, cause)
}

// ServiceUnavailable creates a 503 error. It matches both cause and
// ErrServiceUnavail.
func ServiceUnavailable(code, message string, cause error) *AppError {
	return newAppError(http.StatusServiceUnavailable, code, message, ErrServiceUnavail, cause)
}

// Unsupported creates a 501 error for operations the running configuration
// cannot perform.
func Unsupported(code, message string, cause error) *AppError {
	return newAppError(http.StatusNotImplemented, code, message, ErrUnsupported, cause)
}

var statusBySentinel = []struct {
	sentinel error
	status   int
}{
	{ErrNotFound, http.StatusNotFound},
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrServiceUnavail, http.StatusServiceUnavailable},
	{ErrTooManyRequest, http.StatusTooManyRequests},
	{ErrUnsupported, http.StatusNotImplemented},
}

// HTTPStatus maps err to a status code. AppErrors carry their own; other
// errors are classified by sentinel, defaulting to 500.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	for _, c := range statusBySentinel {
		if errors.Is(err, c.sentinel) {
			return c.status
		}
	}
	return http.StatusInternalServerError
}
