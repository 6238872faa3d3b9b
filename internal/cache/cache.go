// Package cache implements a thin read-through cache over Redis,
// generalizing the teacher's CacheService (internal/services/cache_service.go)
// from a package-level context.Background() caller to an explicit
// context.Context parameter everywhere, so the tenant poller's tight
// per-tick loop can shield C2 lookups behind a short TTL without owning
// a Redis client directly.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned for both an absent key and a transient Redis
// error: either way the caller should fall back to the source of truth.
var ErrMiss = errors.New("cache: miss")

// ReadThrough wraps a Redis client with JSON get/set/delete. A nil
// *ReadThrough or a ReadThrough built with a nil client is a permanent
// miss, so callers never need a separate "is caching enabled" check.
type ReadThrough struct {
	client *redis.Client
	logger *log.Logger
}

// New creates a ReadThrough cache.
func New(client *redis.Client, logger *log.Logger) *ReadThrough {
	return &ReadThrough{client: client, logger: logger}
}

// Get unmarshals the cached value for key into dest, or returns ErrMiss.
func (c *ReadThrough) Get(ctx context.Context, key string, dest interface{}) error {
	if c == nil || c.client == nil {
		return ErrMiss
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return ErrMiss
	}
	if err != nil {
		c.logger.Printf("cache: get %s failed: %v", key, err)
		return ErrMiss
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Printf("cache: unmarshal %s failed: %v", key, err)
		return ErrMiss
	}
	return nil
}

// Set stores value under key with the given TTL, logging and swallowing
// any failure: a cache write failing never fails the caller's read.
func (c *ReadThrough) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if c == nil || c.client == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Printf("cache: marshal %s failed: %v", key, err)
		return
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Printf("cache: set %s failed: %v", key, err)
	}
}

// Delete evicts key, used to invalidate a cached lookup after a write.
func (c *ReadThrough) Delete(ctx context.Context, key string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Printf("cache: delete %s failed: %v", key, err)
	}
}
