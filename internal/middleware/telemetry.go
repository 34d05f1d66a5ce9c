package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/zfogg/showcase/internal/util"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware starts a server span per request with otelgin and tags it
// with the caller and request id once the rest of the chain has run.
func TracingMiddleware(serviceName string) gin.HandlersChain {
	return gin.HandlersChain{otelgin.Middleware(serviceName), tagSpan}
}

func tagSpan(c *gin.Context) {
	c.Next()

	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		return
	}
	if userID := util.OptionalUserID(c); userID != "" {
		span.SetAttributes(attribute.String("user.id", userID))
	}
	if requestID := c.GetString(RequestIDKey); requestID != "" {
		span.SetAttributes(attribute.String("request.id", requestID))
	}
	for _, ginErr := range c.Errors {
		span.RecordError(ginErr.Err)
		span.SetStatus(codes.Error, ginErr.Error())
	}
}
