package auth

import (
	"errors"

	apperrors "github.com/zfogg/showcase/internal/errors"
)

// Code identifies an authentication failure shown to the user.
type Code string

const (
	CodeInvalidEmail       Code = "invalid_email"
	CodeEmailInUse         Code = "email_in_use"
	CodeWeakPassword       Code = "weak_password"
	CodeMissingDisplayName Code = "missing_display_name"
	CodeInvalidCredentials Code = "invalid_credentials"
	CodeInvalidToken       Code = "invalid_token"
	CodeInvalidResetToken  Code = "invalid_reset_token"
	CodeSSOUnavailable     Code = "sso_unavailable"
	CodeSSOFailed          Code = "sso_failed"
	CodeSSOEmailUnverified Code = "sso_email_unverified"
	CodeTwoFactorRequired  Code = "two_factor_required"
	CodeInvalidTwoFactor   Code = "invalid_two_factor_code"
	CodeTwoFactorEnabled   Code = "two_factor_enabled"
	CodeTwoFactorNotSetUp  Code = "two_factor_not_set_up"
)

// GenericMessage is shown for any failure outside the table.
const GenericMessage = "Something went wrong signing you in. Please try again."

var messages = map[Code]string{
	CodeInvalidEmail:       "Please enter a valid email address.",
	CodeEmailInUse:         "An account with this email already exists.",
	CodeWeakPassword:       "Passwords must be at least 8 characters.",
	CodeMissingDisplayName: "Please enter your name.",
	CodeInvalidCredentials: "Incorrect email or password.",
	CodeInvalidToken:       "Your session has expired. Please sign in again.",
	CodeInvalidResetToken:  "This reset link is invalid or has expired.",
	CodeSSOUnavailable:     "Google sign-in is not available right now.",
	CodeSSOFailed:          "Google sign-in failed. Please try again.",
	CodeSSOEmailUnverified: "Your Google account email is not verified.",
	CodeTwoFactorRequired:  "Enter the code from your authenticator app.",
	CodeInvalidTwoFactor:   "That code is not valid. Please try again.",
	CodeTwoFactorEnabled:   "Two-factor sign-in is already on.",
	CodeTwoFactorNotSetUp:  "Two-factor sign-in is not set up.",
}

// Error is an authentication failure with a stable code.
type Error struct {
	Code  Code
	Field string
	class error
}

func (e *Error) Error() string { return string(e.Code) }
func (e *Error) Unwrap() error { return e.class }

func newError(code Code, class error) *Error {
	return &Error{Code: code, class: class}
}

func fieldError(code Code, field string) *Error {
	return &Error{Code: code, Field: field, class: apperrors.ErrBadRequest}
}

var (
	ErrInvalidEmail       = fieldError(CodeInvalidEmail, "email")
	ErrWeakPassword       = fieldError(CodeWeakPassword, "password")
	ErrMissingDisplayName = fieldError(CodeMissingDisplayName, "display_name")
	ErrEmailInUse         = newError(CodeEmailInUse, apperrors.ErrConflict)
	ErrInvalidCredentials = newError(CodeInvalidCredentials, apperrors.ErrUnauthorized)
	ErrInvalidToken       = newError(CodeInvalidToken, apperrors.ErrUnauthorized)
	ErrInvalidResetToken  = newError(CodeInvalidResetToken, apperrors.ErrBadRequest)
	ErrSSOUnavailable     = newError(CodeSSOUnavailable, errors.New("service unavailable"))
	ErrSSOFailed          = newError(CodeSSOFailed, apperrors.ErrUnauthorized)
	ErrSSOEmailUnverified = newError(CodeSSOEmailUnverified, apperrors.ErrForbidden)
	ErrTwoFactorRequired  = fieldError(CodeTwoFactorRequired, "code")
	ErrInvalidTwoFactor   = newError(CodeInvalidTwoFactor, apperrors.ErrUnauthorized)
	ErrTwoFactorEnabled   = newError(CodeTwoFactorEnabled, apperrors.ErrConflict)
	ErrTwoFactorNotSetUp  = newError(CodeTwoFactorNotSetUp, apperrors.ErrBadRequest)
)

// Message maps err to its user-facing text. Errors outside the table get
// GenericMessage; raw error text is never returned.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		if msg, ok := messages[ae.Code]; ok {
			return msg
		}
	}
	return GenericMessage
}

// ToAPIError builds the response body for an authentication failure.
func ToAPIError(err error) *apperrors.APIError {
	var ae *Error
	if !errors.As(err, &ae) {
		return apperrors.InternalError(GenericMessage)
	}
	msg := Message(err)
	switch {
	case ae.Field != "":
		return apperrors.ValidationError(ae.Field, msg)
	case ae.Code == CodeSSOUnavailable:
		apiErr := apperrors.ServiceUnavailable("Google sign-in")
		apiErr.Message = msg
		return apiErr
	}
	apiErr := apperrors.FromError(ae.class)
	apiErr.Message = msg
	return apiErr
}
