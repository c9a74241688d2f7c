package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/newthinker/sigma/internal/core"
	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the connection settings of a RedisCache.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// RedisCache stores JSON-encoded results in Redis with native key expiry.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to the configured Redis server.
func NewRedisCache(cfg RedisConfig) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisCacheWithClient(client, cfg.Prefix)
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

// Ping checks connectivity.
func (r *RedisCache) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return core.WrapError(core.ErrCacheFailure, err)
	}
	return nil
}

// Get fetches and decodes the result stored under key.
func (r *RedisCache) Get(ctx context.Context, key string) (*core.SignalResult, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrCacheMiss
		}
		return nil, core.WrapError(core.ErrCacheFailure, err)
	}

	var result core.SignalResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, core.WrapError(core.ErrCacheFailure, err)
	}
	return &result, nil
}

// Set encodes result as JSON and stores it with ttl.
func (r *RedisCache) Set(ctx context.Context, key string, result *core.SignalResult, ttl time.Duration) error {
	if result == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	data, err := json.Marshal(result)
	if err != nil {
		return core.WrapError(core.ErrCacheFailure, err)
	}
	if err := r.client.Set(ctx, r.prefix+key, data, ttl).Err(); err != nil {
		return core.WrapError(core.ErrCacheFailure, err)
	}
	return nil
}

// Delete removes key.
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return core.WrapError(core.ErrCacheFailure, err)
	}
	return nil
}

// Close closes the underlying client.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
