package errors

import "net/http"

// ErrorCode is the machine-readable code sent to clients.
type ErrorCode string

const (
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	CodeForbidden      ErrorCode = "FORBIDDEN"
	CodeConflict       ErrorCode = "CONFLICT"
	CodeValidation     ErrorCode = "VALIDATION_ERROR"
	CodeBadRequest     ErrorCode = "BAD_REQUEST"
	CodeInternal       ErrorCode = "INTERNAL_ERROR"
	CodeRateLimited    ErrorCode = "RATE_LIMITED"
	CodeServiceUnavail ErrorCode = "SERVICE_UNAVAILABLE"
	CodeTimeout        ErrorCode = "TIMEOUT"
)

var statusByCode = map[ErrorCode]int{
	CodeNotFound:       http.StatusNotFound,
	CodeUnauthorized:   http.StatusUnauthorized,
	CodeForbidden:      http.StatusForbidden,
	CodeConflict:       http.StatusConflict,
	CodeValidation:     http.StatusUnprocessableEntity,
	CodeBadRequest:     http.StatusBadRequest,
	CodeInternal:       http.StatusInternalServerError,
	CodeRateLimited:    http.StatusTooManyRequests,
	CodeServiceUnavail: http.StatusServiceUnavailable,
	CodeTimeout:        http.StatusGatewayTimeout,
}

// StatusCode returns the HTTP status for the code, 500 for unknown codes.
func (e ErrorCode) StatusCode() int {
	if code, ok := statusByCode[e]; ok {
		return code
	}
	return http.StatusInternalServerError
}
