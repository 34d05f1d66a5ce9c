package middleware

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/showcase/internal/logger"
	"github.com/zfogg/showcase/internal/metrics"
	"github.com/zfogg/showcase/internal/util"
	"go.uber.org/zap"
)

// ResponseStore holds cached response bodies. *cache.RedisClient implements it.
type ResponseStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetEx(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// ResponseCacheMiddleware serves repeated GETs from the store for ttl. Entries
// are keyed per viewer. Only 200 responses are stored. A nil store disables it.
func ResponseCacheMiddleware(store ResponseStore, ttl time.Duration) gin.HandlerFunc {
	if store == nil {
		return func(c *gin.Context) { c.Next() }
	}
	m := metrics.Get()
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		key := cacheKey(c.Request.URL.Path, c.Request.URL.RawQuery, util.OptionalUserID(c))

		if body, err := store.Get(ctx, key); err == nil {
			m.CacheResultsTotal.WithLabelValues("hit").Inc()
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(body))
			c.Abort()
			return
		}
		m.CacheResultsTotal.WithLabelValues("miss").Inc()

		w := &bodyRecorder{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = w
		c.Header("X-Cache", "MISS")
		c.Next()

		if w.Status() != http.StatusOK || w.body.Len() == 0 {
			return
		}
		if err := store.SetEx(ctx, key, w.body.String(), ttl); err != nil {
			logger.Log.Debug("Failed to cache response", zap.String("key", key), zap.Error(err))
		}
	}
}

func cacheKey(path, query, userID string) string {
	if userID == "" {
		userID = "anon"
	}
	return fmt.Sprintf("response:%s?%s:%s", path, query, userID)
}

type bodyRecorder struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyRecorder) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
