package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/zfogg/showcase/internal/auth"
	"github.com/zfogg/showcase/internal/config"
	"github.com/zfogg/showcase/internal/database"
	"github.com/zfogg/showcase/internal/handlers"
	"github.com/zfogg/showcase/internal/kernel"
	"github.com/zfogg/showcase/internal/logger"
	"github.com/zfogg/showcase/internal/middleware"
	"github.com/zfogg/showcase/internal/telemetry"
	"go.uber.org/zap"
)

const (
	serviceName       = "showcase-api"
	discoverCacheTTL  = 30 * time.Second
	shutdownTimeout   = 30 * time.Second
	readHeaderTimeout = 10 * time.Second
)

func main() {
	// .env is optional; real deployments set the environment directly
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal("Invalid configuration", zap.Error(err))
	}
	if err := logger.Initialize(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile}); err != nil {
		logger.Log.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer logger.Close()
	if envErr != nil {
		logger.Log.Debug(".env not loaded, using process environment", zap.Error(envErr))
	}

	logger.Log.Info("=== Showcase server starting ===", zap.String("environment", cfg.Environment))

	ctx := context.Background()
	tp, err := telemetry.InitTracer(ctx, telemetry.Config{
		ServiceName:  serviceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTLPEndpoint,
		Enabled:      cfg.TracingEnabled,
		SamplingRate: cfg.TraceSampleRate,
	})
	if err != nil {
		logger.WarnWithFields("Tracing disabled", err)
	}

	if err := database.Initialize(cfg.DatabaseURL, cfg.IsDevelopment()); err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close()
	if err := database.Migrate(database.DB); err != nil {
		logger.Log.Fatal("Failed to run migrations", zap.Error(err))
	}
	if tp != nil {
		if err := database.DB.Use(telemetry.GORMTracingPlugin()); err != nil {
			logger.WarnWithFields("Query tracing disabled", err)
		}
	}

	k, err := kernel.Build(ctx, cfg, database.DB, kernel.Options{})
	if err != nil {
		logger.Log.Fatal("Failed to build services", zap.Error(err))
	}
	if tp != nil {
		k.OnShutdown(tp.Shutdown)
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.AppBaseURL}
	if cfg.IsDevelopment() {
		corsConfig.AllowOrigins = []string{"*"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"}
	r.Use(cors.New(corsConfig))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	r.Use(middleware.TracingMiddleware(serviceName)...)
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())

	mw := handlers.Middleware{
		RequireAuth:  auth.AuthMiddleware(k.Auth()),
		OptionalAuth: auth.OptionalAuthMiddleware(k.Auth()),
	}
	if rc := k.Cache(); rc != nil {
		r.Use(middleware.RedisRateLimitMiddleware(rc, cfg.RateLimit, cfg.RateWindow))
		mw.DiscoverCache = middleware.ResponseCacheMiddleware(rc, discoverCacheTTL)
	} else {
		logger.Log.Warn("Redis not configured, rate limiting disabled")
	}
	k.Handlers().RegisterRoutes(r, mw)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           k.Handlers().Handler(r),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		logger.Log.Info("Showcase API listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithFields("Server forced to shutdown", err)
	}
	// drains the worker pool and closes websockets, redis and the tracer
	if err := k.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithFields("Shutdown finished with errors", err)
	}
	logger.Log.Info("Server exited")
}
