package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/showcase/internal/logger"
	"github.com/zfogg/showcase/internal/util"
	"go.uber.org/zap"
)

// GinLoggerMiddleware logs one structured line per request in place of gin.Logger.
func GinLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			logger.WithIP(c.ClientIP()),
			logger.WithStatus(status),
			zap.Int("response_size", c.Writer.Size()),
			zap.Duration("latency", time.Since(start)),
		}
		if requestID := c.GetString(RequestIDKey); requestID != "" {
			fields = append(fields, logger.WithRequestID(requestID))
		}
		if userID := util.OptionalUserID(c); userID != "" {
			fields = append(fields, logger.WithUserID(userID))
		}

		switch {
		case status >= 500:
			logger.Log.Error("HTTP request", fields...)
		case status >= 400:
			logger.Log.Warn("HTTP request", fields...)
		default:
			logger.Log.Info("HTTP request", fields...)
		}
	}
}
