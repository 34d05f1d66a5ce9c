package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// Error classes returned by services. Package-specific errors wrap one of these
// so handlers can map them without knowing every package.
var (
	ErrNotFound     = stderrors.New("not found")
	ErrForbidden    = stderrors.New("forbidden")
	ErrConflict     = stderrors.New("conflict")
	ErrBadRequest   = stderrors.New("bad request")
	ErrUnauthorized = stderrors.New("unauthorized")
)

// APIError is the JSON error body sent to clients.
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
	Details string    `json:"details,omitempty"`
	Status  int       `json:"-"`
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithDetails attaches extra context to the error.
func (e *APIError) WithDetails(details string) *APIError {
	e.Details = details
	return e
}

func newAPIError(code ErrorCode, message string) *APIError {
	return &APIError{Code: code, Message: message, Status: code.StatusCode()}
}

func NotFound(resource string) *APIError {
	return newAPIError(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func Unauthorized(message string) *APIError {
	return newAPIError(CodeUnauthorized, message)
}

func Forbidden(message string) *APIError {
	return newAPIError(CodeForbidden, message)
}

func Conflict(message string) *APIError {
	return newAPIError(CodeConflict, message)
}

func BadRequest(message string) *APIError {
	return newAPIError(CodeBadRequest, message)
}

func InternalError(message string) *APIError {
	return newAPIError(CodeInternal, message)
}

func RateLimited(message string) *APIError {
	if message == "" {
		message = "rate limit exceeded"
	}
	return newAPIError(CodeRateLimited, message)
}

func ServiceUnavailable(service string) *APIError {
	return newAPIError(CodeServiceUnavail, fmt.Sprintf("%s is temporarily unavailable", service))
}

func Timeout(operation string) *APIError {
	return newAPIError(CodeTimeout, fmt.Sprintf("%s timed out", operation))
}

// ValidationError reports a rejected input field.
func ValidationError(field, message string) *APIError {
	e := newAPIError(CodeValidation, message)
	e.Field = field
	return e
}

// FieldError is returned by services when input fails validation before any write.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Invalid builds a FieldError.
func Invalid(field, message string) error {
	return &FieldError{Field: field, Message: message}
}

// FromError translates a service error into the response sent to the client.
// Unclassified errors become a generic 500 so raw error text never reaches clients.
func FromError(err error) *APIError {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}
	var fieldErr *FieldError
	if stderrors.As(err, &fieldErr) {
		return ValidationError(fieldErr.Field, fieldErr.Message)
	}

	switch {
	case stderrors.Is(err, ErrNotFound):
		return newAPIError(CodeNotFound, err.Error())
	case stderrors.Is(err, ErrForbidden):
		return newAPIError(CodeForbidden, err.Error())
	case stderrors.Is(err, ErrConflict):
		return newAPIError(CodeConflict, err.Error())
	case stderrors.Is(err, ErrBadRequest):
		return newAPIError(CodeBadRequest, err.Error())
	case stderrors.Is(err, ErrUnauthorized):
		return newAPIError(CodeUnauthorized, err.Error())
	case stderrors.Is(err, context.DeadlineExceeded):
		return Timeout("request")
	default:
		return InternalError("internal server error")
	}
}
