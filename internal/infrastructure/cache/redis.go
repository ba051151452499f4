package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/mediarelay/internal/domain/model"
	"github.com/hszk-dev/mediarelay/internal/infrastructure/metrics"
)

const (
	// probeCacheKeyPrefix is the prefix for probe cache keys in Redis.
	probeCacheKeyPrefix = "probe:"
)

// RedisProbeCache implements ProbeCache using Redis as the backing store.
type RedisProbeCache struct {
	client *redis.Client
}

// NewRedisProbeCache creates a new Redis-backed probe cache.
func NewRedisProbeCache(client *redis.Client) *RedisProbeCache {
	return &RedisProbeCache{
		client: client,
	}
}

// Get retrieves a probe result from Redis cache.
// Returns nil, nil on cache miss.
func (c *RedisProbeCache) Get(ctx context.Context, ref model.MediaRef) (*model.ProbeResult, error) {
	data, err := c.client.Get(ctx, c.buildKey(ref)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			record(metrics.CacheOpGet, metrics.CacheStatusMiss)
			return nil, nil
		}
		record(metrics.CacheOpGet, metrics.CacheStatusError)
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var result model.ProbeResult
	if err := json.Unmarshal(data, &result); err != nil {
		record(metrics.CacheOpGet, metrics.CacheStatusError)
		return nil, fmt.Errorf("deserialize probe result: %w", err)
	}

	record(metrics.CacheOpGet, metrics.CacheStatusHit)
	return &result, nil
}

// Set stores a probe result in Redis cache with the specified TTL.
func (c *RedisProbeCache) Set(ctx context.Context, result *model.ProbeResult, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("serialize probe result: %w", err)
	}

	if err := c.client.Set(ctx, c.buildKey(result.Ref()), data, ttl).Err(); err != nil {
		record(metrics.CacheOpSet, metrics.CacheStatusError)
		return fmt.Errorf("redis set: %w", err)
	}

	record(metrics.CacheOpSet, metrics.CacheStatusSuccess)
	return nil
}

// Delete removes a probe result from Redis cache.
func (c *RedisProbeCache) Delete(ctx context.Context, ref model.MediaRef) error {
	if err := c.client.Del(ctx, c.buildKey(ref)).Err(); err != nil {
		record(metrics.CacheOpDelete, metrics.CacheStatusError)
		return fmt.Errorf("redis del: %w", err)
	}

	record(metrics.CacheOpDelete, metrics.CacheStatusSuccess)
	return nil
}

// buildKey constructs the Redis key for a probe result, e.g. "probe:english/a1".
func (c *RedisProbeCache) buildKey(ref model.MediaRef) string {
	return probeCacheKeyPrefix + ref.String()
}

func record(op, status string) {
	metrics.CacheOperationsTotal.WithLabelValues(op, status, metrics.CacheTypeRedis).Inc()
}

// Compile-time verification that RedisProbeCache implements ProbeCache.
var _ ProbeCache = (*RedisProbeCache)(nil)
