// Package cache wraps the Redis client shared by rate limiting, response
// caching and search result caching.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zfogg/showcase/internal/logger"
	"go.uber.org/zap"
)

// ErrMiss is returned by reads of absent keys.
var ErrMiss = errors.New("cache miss")

// RedisClient wraps redis.Client with the handful of operations the app uses.
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient connects and pings. host defaults to localhost and port to 6379.
func NewRedisClient(ctx context.Context, host, port, password string) (*RedisClient, error) {
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = "6379"
	}
	addr := fmt.Sprintf("%s:%s", host, port)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 2,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	logger.Log.Info("Redis connected", zap.String("address", addr))
	return &RedisClient{client: client}, nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client *redis.Client) *RedisClient {
	return &RedisClient{client: client}
}

// Close closes the Redis connection gracefully
func (rc *RedisClient) Close() error {
	if rc == nil || rc.client == nil {
		return nil
	}
	return rc.client.Close()
}

// Get returns ErrMiss when the key is absent.
func (rc *RedisClient) Get(ctx context.Context, key string) (string, error) {
	val, err := rc.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return val, err
}

// SetEx stores a value in Redis with expiration
func (rc *RedisClient) SetEx(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return rc.client.Set(ctx, key, value, ttl).Err()
}

// GetJSON decodes a cached JSON value into dst.
func (rc *RedisClient) GetJSON(ctx context.Context, key string, dst interface{}) error {
	raw, err := rc.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), dst)
}

// SetJSON stores v as JSON with a TTL.
func (rc *RedisClient) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return rc.client.Set(ctx, key, data, ttl).Err()
}

// Del deletes one or more keys from Redis
func (rc *RedisClient) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return rc.client.Del(ctx, keys...).Err()
}

// DelPattern deletes every key matching pattern, walking the keyspace with SCAN.
func (rc *RedisClient) DelPattern(ctx context.Context, pattern string) (int, error) {
	var deleted int
	iter := rc.client.Scan(ctx, 0, pattern, 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := rc.Del(ctx, batch...); err != nil {
				return deleted, err
			}
			deleted += len(batch)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}
	if err := rc.Del(ctx, batch...); err != nil {
		return deleted, err
	}
	return deleted + len(batch), nil
}

// IncrWindow increments a fixed-window counter and starts its TTL on the first hit.
func (rc *RedisClient) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := rc.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// Ping tests the Redis connection
func (rc *RedisClient) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}
