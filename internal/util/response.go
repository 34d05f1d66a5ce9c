package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/showcase/internal/errors"
	"github.com/zfogg/showcase/internal/logger"
	"go.uber.org/zap"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// RespondWithAPIError logs apiErr (5xx at error, 4xx at warn) and writes it.
func RespondWithAPIError(c *gin.Context, apiErr *errors.APIError) {
	fields := []zap.Field{
		zap.String("code", string(apiErr.Code)),
		zap.String("message", apiErr.Message),
		zap.String("path", c.FullPath()),
		logger.WithStatus(apiErr.Status),
	}
	if apiErr.Field != "" {
		fields = append(fields, zap.String("field", apiErr.Field))
	}
	if requestID, ok := c.Get("request_id"); ok {
		fields = append(fields, zap.Any("request_id", requestID))
	}
	if apiErr.Status >= http.StatusInternalServerError {
		logger.Log.Error("API error", fields...)
	} else if apiErr.Status >= http.StatusBadRequest {
		logger.Log.Warn("API error", fields...)
	}

	c.AbortWithStatusJSON(apiErr.Status, ErrorResponse{
		Code:    string(apiErr.Code),
		Message: apiErr.Message,
		Field:   apiErr.Field,
		Details: apiErr.Details,
	})
}

// RespondError maps a service error onto the matching API error. Unclassified
// errors are logged with their cause and answered with a generic 500.
func RespondError(c *gin.Context, err error) {
	apiErr := errors.FromError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		logger.Log.Error("Unhandled service error", zap.String("path", c.FullPath()), zap.Error(err))
	}
	RespondWithAPIError(c, apiErr)
}

func RespondUnauthorized(c *gin.Context, message ...string) {
	msg := "user not authenticated"
	if len(message) > 0 && message[0] != "" {
		msg = message[0]
	}
	RespondWithAPIError(c, errors.Unauthorized(msg))
}

func RespondNotFound(c *gin.Context, resource string) {
	RespondWithAPIError(c, errors.NotFound(resource))
}

func RespondBadRequest(c *gin.Context, message string) {
	RespondWithAPIError(c, errors.BadRequest(message))
}

func RespondForbidden(c *gin.Context, message string) {
	RespondWithAPIError(c, errors.Forbidden(message))
}

func RespondInternalError(c *gin.Context, message string) {
	RespondWithAPIError(c, errors.InternalError(message))
}

func RespondValidationError(c *gin.Context, field, message string) {
	RespondWithAPIError(c, errors.ValidationError(field, message))
}
