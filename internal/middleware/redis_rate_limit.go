package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/zfogg/showcase/internal/errors"
	"github.com/zfogg/showcase/internal/logger"
	"github.com/zfogg/showcase/internal/metrics"
	"github.com/zfogg/showcase/internal/util"
	"go.uber.org/zap"
)

// WindowCounter counts hits on a key within a fixed window.
// *cache.RedisClient implements it.
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisRateLimitMiddleware allows maxRequests per client IP per window across
// every server instance. A nil counter disables limiting.
func RedisRateLimitMiddleware(counter WindowCounter, maxRequests int, window time.Duration) gin.HandlerFunc {
	if counter == nil || maxRequests <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		key := fmt.Sprintf("rate_limit:%s", clientIP)
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		count, err := counter.IncrWindow(ctx, key, window)
		if err != nil {
			// A broken limiter must not open the API to floods.
			logger.Log.Error("Rate limit check failed", logger.WithIP(clientIP), zap.Error(err))
			util.RespondWithAPIError(c, apperrors.ServiceUnavailable("API"))
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		remaining := int64(maxRequests) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(maxRequests) {
			metrics.Get().RateLimitExceededTotal.WithLabelValues(c.FullPath()).Inc()
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			util.RespondWithAPIError(c, apperrors.RateLimited(""))
			return
		}
		c.Next()
	}
}
