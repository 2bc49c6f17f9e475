package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"gatewaybench/internal/core"
)

// DefaultRedisPrefix namespaces benchmark result keys.
const DefaultRedisPrefix = "gatewaybench:benchmark:"

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379/0")
	URL string
	// Prefix is prepended to every model id (defaults to "gatewaybench:benchmark:")
	Prefix string
}

// RedisResults persists benchmark results in Redis so several instances,
// or a restarted one, share the same measurements.
type RedisResults struct {
	client *redis.Client
	prefix string
}

// NewRedisResults connects to Redis and verifies the connection.
func NewRedisResults(ctx context.Context, cfg RedisConfig) (*RedisResults, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	slog.Info("redis result store connected", "addr", opts.Addr, "prefix", prefix)

	return &RedisResults{client: client, prefix: prefix}, nil
}

// Load returns the stored result for modelID, or nil when there is none.
func (r *RedisResults) Load(ctx context.Context, modelID string) (*core.BenchmarkResult, error) {
	data, err := r.client.Get(ctx, r.prefix+modelID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get result from redis: %w", err)
	}

	var res core.BenchmarkResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to parse result from redis: %w", err)
	}
	return &res, nil
}

// Save stores res under its model id; Redis expires it after ttl.
func (r *RedisResults) Save(ctx context.Context, res *core.BenchmarkResult, ttl time.Duration) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := r.client.Set(ctx, r.prefix+res.ModelID, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set result in redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (r *RedisResults) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
