package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/showcase/internal/cache"
	"github.com/zfogg/showcase/internal/metrics"
	"github.com/zfogg/showcase/internal/util"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestRequestIDIsEchoedOrGenerated(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	w := get(r, "/")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, w.Header().Get("X-Request-ID"), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Body.String())
}

type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (f *fakeCounter) IncrWindow(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[key]++
	return f.counts[key], nil
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	before := testutil.ToFloat64(metrics.Get().RateLimitExceededTotal.WithLabelValues("/limited"))

	r := gin.New()
	r.Use(RedisRateLimitMiddleware(&fakeCounter{}, 2, time.Minute))
	r.GET("/limited", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, get(r, "/limited").Code)
	w := get(r, "/limited")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = get(r, "/limited")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.Get().RateLimitExceededTotal.WithLabelValues("/limited")))
}

func TestRateLimitFailsClosedOnStoreError(t *testing.T) {
	r := gin.New()
	r.Use(RedisRateLimitMiddleware(&fakeCounter{err: errors.New("connection refused")}, 2, time.Minute))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusServiceUnavailable, get(r, "/").Code)
}

func TestRateLimitDisabledWithoutRedis(t *testing.T) {
	r := gin.New()
	r.Use(RedisRateLimitMiddleware(nil, 1, time.Minute))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, get(r, "/").Code)
	}
}

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", cache.ErrMiss
	}
	return v, nil
}

func (m *memStore) SetEx(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string]string{}
	}
	m.data[key] = value.(string)
	return nil
}

func TestResponseCacheServesRepeatsPerViewer(t *testing.T) {
	calls := 0
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-User-ID"); id != "" {
			c.Set(util.ContextUserIDKey, id)
		}
	})
	r.Use(ResponseCacheMiddleware(&memStore{}, time.Minute))
	r.GET("/feed", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})
	r.GET("/missing", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusNotFound, gin.H{})
	})

	first := get(r, "/feed")
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	second := get(r, "/feed")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)

	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.Header.Set("X-User-ID", "u1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"), "viewers do not share entries")
	assert.Equal(t, 2, calls)

	get(r, "/missing")
	get(r, "/missing")
	assert.Equal(t, 4, calls, "error responses are not cached")
}

func TestMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	m := metrics.Get()
	before := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/projects/:id", "200"))

	r := gin.New()
	r.Use(MetricsMiddleware())
	r.GET("/projects/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	get(r, "/projects/a")
	get(r, "/projects/b")
	w := get(r, "/nowhere")
	require.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, before+2, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/projects/:id", "200")))
	assert.Zero(t, testutil.ToFloat64(m.HTTPInFlight))
}
