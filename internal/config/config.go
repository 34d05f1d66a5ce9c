package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/zfogg/showcase/internal/models"
)

// Config holds everything the server reads from the environment.
// It is loaded once in main and passed down explicitly.
type Config struct {
	Environment string
	Port        string

	DatabaseURL string

	JWTSecret []byte
	TokenTTL  time.Duration

	LogLevel string
	LogFile  string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RateLimit     int
	RateWindow    time.Duration

	AWSRegion  string
	S3Bucket   string
	CDNBaseURL string
	EmailFrom  string
	EmailName  string
	AppBaseURL string

	ElasticsearchURL string

	OTLPEndpoint    string
	TracingEnabled  bool
	TraceSampleRate float64

	Feed  FeedConfig
	Store StoreConfig

	// DefaultPreferences seeds new accounts and fills unset preference fields.
	DefaultPreferences models.Preferences

	// AsyncNotifications routes fan-out through the worker pool instead of the request goroutine.
	AsyncNotifications bool
	WorkerCount        int

	// CleanupInterval is how often expired reset tokens and old read notifications are swept. Zero disables the sweep.
	CleanupInterval       time.Duration
	NotificationRetention time.Duration
}

// FeedConfig tunes feed assembly.
type FeedConfig struct {
	// MaxInQuery caps the number of author ids per membership query.
	MaxInQuery int
	// Concurrency bounds how many batch queries run at once.
	Concurrency int
	// DiscoverPublicOnly hides private projects from the discover feed.
	DiscoverPublicOnly bool
}

// StoreConfig bounds store round-trips.
type StoreConfig struct {
	ReadTimeout time.Duration
}

// Load reads the environment. Only JWT_SECRET is required outside development.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),
		Port:        getEnvOrDefault("PORT", "8787"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		TokenTTL:    getDurationOrDefault("TOKEN_TTL", 24*time.Hour),

		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:  getEnvOrDefault("LOG_FILE", "server.log"),

		RedisHost:     os.Getenv("REDIS_HOST"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RateLimit:     getIntOrDefault("RATE_LIMIT_REQUESTS", 120),
		RateWindow:    getDurationOrDefault("RATE_LIMIT_WINDOW", time.Minute),

		AWSRegion:  getEnvOrDefault("AWS_REGION", "us-east-1"),
		S3Bucket:   os.Getenv("AWS_BUCKET"),
		CDNBaseURL: os.Getenv("CDN_BASE_URL"),
		EmailFrom:  os.Getenv("EMAIL_FROM"),
		EmailName:  getEnvOrDefault("EMAIL_FROM_NAME", "Showcase"),
		AppBaseURL: getEnvOrDefault("APP_BASE_URL", "http://localhost:3000"),

		ElasticsearchURL: os.Getenv("ELASTICSEARCH_URL"),

		OTLPEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TracingEnabled:  getBoolOrDefault("OTEL_ENABLED", false),
		TraceSampleRate: getFloatOrDefault("OTEL_SAMPLING_RATE", 1.0),

		Feed: FeedConfig{
			MaxInQuery:         getIntOrDefault("FEED_MAX_IN_QUERY", 30),
			Concurrency:        getIntOrDefault("FEED_BATCH_CONCURRENCY", 4),
			DiscoverPublicOnly: getBoolOrDefault("FEED_DISCOVER_PUBLIC_ONLY", false),
		},
		Store: StoreConfig{
			ReadTimeout: getDurationOrDefault("STORE_READ_TIMEOUT", 5*time.Second),
		},

		DefaultPreferences: models.Preferences{
			Theme:    getEnvOrDefault("DEFAULT_THEME", models.ThemeLight),
			FontSize: getEnvOrDefault("DEFAULT_FONT_SIZE", models.FontSizeMedium),
		},

		AsyncNotifications: getBoolOrDefault("ASYNC_NOTIFICATIONS", true),
		WorkerCount:        getIntOrDefault("WORKER_COUNT", 4),

		CleanupInterval:       getDurationOrDefault("CLEANUP_INTERVAL", time.Hour),
		NotificationRetention: getDurationOrDefault("NOTIFICATION_RETENTION", 90*24*time.Hour),
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if cfg.Environment != "development" && cfg.Environment != "test" {
			return nil, fmt.Errorf("JWT_SECRET environment variable is required")
		}
		secret = "dev-secret-change-me"
	}
	cfg.JWTSecret = []byte(secret)

	if cfg.Feed.MaxInQuery <= 0 {
		return nil, fmt.Errorf("FEED_MAX_IN_QUERY must be positive")
	}
	return cfg, nil
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}
