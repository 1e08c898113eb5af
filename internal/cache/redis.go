package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tassosgomes/GestAuto-sub000/internal/config"
)

// keyPrefix namespaces every key this service writes
const keyPrefix = "gestauto:sales:"

// RedisDashboardCache keeps JSON snapshots in Redis with a fixed TTL
type RedisDashboardCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisDashboardCache wraps an existing client
func NewRedisDashboardCache(rdb *redis.Client, ttl time.Duration) *RedisDashboardCache {
	return &RedisDashboardCache{rdb: rdb, ttl: ttl}
}

// Connect opens a client from config and verifies the connection
func Connect(ctx context.Context, cfg config.RedisConfig) (*RedisDashboardCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}

	return NewRedisDashboardCache(rdb, cfg.DashboardCacheTTL), nil
}

// GetJSON loads key into dst. A missing key is reported as (false, nil).
func (c *RedisDashboardCache) GetJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	val, err := c.rdb.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get %s: %w", key, err)
	}

	if err := json.Unmarshal(val, dst); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

// SetJSON stores value under key for the configured TTL
func (c *RedisDashboardCache) SetJSON(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return c.rdb.Set(ctx, keyPrefix+key, data, c.ttl).Err()
}

// Delete removes keys
func (c *RedisDashboardCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = keyPrefix + k
	}
	return c.rdb.Del(ctx, prefixed...).Err()
}

// HealthCheck pings Redis
func (c *RedisDashboardCache) HealthCheck(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close releases the client
func (c *RedisDashboardCache) Close() error {
	return c.rdb.Close()
}
