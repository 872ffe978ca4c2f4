// SPDX-License-Identifier: Apache-2.0

// Package errors provides typed error handling for TraceLens services.
// Every error that crosses the API boundary carries a classification code
// that decides its HTTP status.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
)

// Code classifies service errors for API responses and monitoring.
type Code string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal Code = "INTERNAL_ERROR"

	// CodeInvalidInput indicates the request payload or parameters were invalid.
	CodeInvalidInput Code = "INVALID_INPUT"

	// CodeNotFound indicates a resource was not found.
	CodeNotFound Code = "NOT_FOUND"

	// CodeConflict indicates the request collides with existing state.
	CodeConflict Code = "CONFLICT"

	// CodeUnauthorized indicates the request lacked a valid session.
	CodeUnauthorized Code = "UNAUTHORIZED"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout Code = "TIMEOUT"

	// CodeRateLimit indicates rate limiting was triggered.
	CodeRateLimit Code = "RATE_LIMITED"

	// CodeStorage indicates a persistence layer failure.
	CodeStorage Code = "STORAGE_ERROR"
)

// ServiceError is a typed error with context for logging and API mapping.
// It implements the error interface and supports errors.As/errors.Is
// through Unwrap.
type ServiceError struct {
	Code    Code
	Message string
	Err     error
	Context map[string]any
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *ServiceError) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"code":    string(e.Code),
		"message": e.Message,
	}
	if e.Err != nil {
		out["cause"] = e.Err.Error()
	}
	if len(e.Context) > 0 {
		out["context"] = e.Context
	}
	return json.Marshal(out)
}

// New creates a ServiceError with the given code, message, and cause.
func New(code Code, msg string, cause error) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: msg,
		Err:     cause,
	}
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *ServiceError) WithContext(key string, value any) *ServiceError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// HTTPStatus maps the error code to an HTTP status. Unclassified service
// errors map to 400, matching the handler convention that any raw failure
// surfaces as a bad request.
func (e *ServiceError) HTTPStatus() int {
	switch e.Code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeConflict:
		return http.StatusConflict
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeTimeout:
		return http.StatusRequestTimeout
	case CodeRateLimit:
		return http.StatusTooManyRequests
	case CodeInternal, CodeStorage:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// AsServiceError converts an error to a ServiceError. Errors that are not
// already typed are left unclassified so handlers keep the raw-failure
// contract for them.
func AsServiceError(err error) *ServiceError {
	if err == nil {
		return nil
	}
	var se *ServiceError
	if stderrors.As(err, &se) {
		return se
	}
	return &ServiceError{Message: err.Error(), Err: err}
}

// NotFound creates a NOT_FOUND error for the named resource.
func NotFound(resource, id string) *ServiceError {
	return New(CodeNotFound, fmt.Sprintf("%s %q not found", resource, id), nil).
		WithContext("resource", resource).
		WithContext("id", id)
}

// InvalidInput creates an INVALID_INPUT error.
func InvalidInput(msg string) *ServiceError {
	return New(CodeInvalidInput, msg, nil)
}

// Conflict creates a CONFLICT error.
func Conflict(msg string) *ServiceError {
	return New(CodeConflict, msg, nil)
}

// Unauthorized creates an UNAUTHORIZED error.
func Unauthorized(msg string) *ServiceError {
	return New(CodeUnauthorized, msg, nil)
}

// WrapStorage wraps a persistence failure with the failing operation.
func WrapStorage(op string, err error) *ServiceError {
	if err == nil {
		return nil
	}
	return New(CodeStorage, "storage operation failed", err).
		WithContext("operation", op)
}
