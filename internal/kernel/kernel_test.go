package kernel

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/showcase/internal/config"
	"github.com/zfogg/showcase/internal/handlers"
	"github.com/zfogg/showcase/internal/models"
	"github.com/zfogg/showcase/internal/testutil"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:        "test",
		JWTSecret:          []byte("secret"),
		Feed:               config.FeedConfig{MaxInQuery: 30, Concurrency: 2},
		DefaultPreferences: models.Preferences{Theme: models.ThemeLight, FontSize: models.FontSizeMedium},
		AsyncNotifications: true,
		WorkerCount:        2,
	}
}

func TestBuildRequiresDatabase(t *testing.T) {
	_, err := Build(context.Background(), testConfig(), nil, Options{SkipExternal: true})
	var initErr *InitializationError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, []string{"database"}, initErr.MissingDeps)
	assert.Equal(t, "missing required dependencies: database", err.Error())
}

func TestBuildServesWithoutExternalBackends(t *testing.T) {
	gin.SetMode(gin.TestMode)
	k, err := Build(context.Background(), testConfig(), testutil.NewDB(t), Options{SkipExternal: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = k.Shutdown(context.Background()) })

	assert.Nil(t, k.Cache())
	assert.Nil(t, k.Search())
	require.NotNil(t, k.Queue())

	r := gin.New()
	k.Handlers().RegisterRoutes(r, handlers.Middleware{
		RequireAuth:  gin.HandlerFunc(func(c *gin.Context) { c.Next() }),
		OptionalAuth: gin.HandlerFunc(func(c *gin.Context) { c.Next() }),
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, "google sso is off without credentials")
}

func TestShutdownRunsHooksInReverse(t *testing.T) {
	k := &Kernel{}
	var order []int
	boom := errors.New("boom")
	k.OnShutdown(func(context.Context) error { order = append(order, 1); return nil })
	k.OnShutdown(func(context.Context) error { order = append(order, 2); return boom })
	k.OnShutdown(func(context.Context) error { order = append(order, 3); return nil })

	err := k.Shutdown(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{3, 2, 1}, order)

	assert.NoError(t, k.Shutdown(context.Background()), "hooks run once")
}
