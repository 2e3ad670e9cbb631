package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is an original-state cache shared across server instances, for
// deployments where an entity may be loaded on one instance and updated on
// another. GETDEL preserves the read-once guarantee atomically; key TTL
// replaces the in-process sweeper.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
	prefix string
}

// NewRedisCache builds a Redis-backed cache with the given entry TTL.
func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisCache{
		client: client,
		ttl:    ttl,
		prefix: "audit:origstate:",
	}
}

// Put stores (or overwrites) the snapshot for key with the cache TTL.
func (c *RedisCache) Put(ctx context.Context, key CacheKey, snap Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key.String(), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("put original state: %w", err)
	}
	return nil
}

// Take atomically returns and removes the snapshot for key.
func (c *RedisCache) Take(ctx context.Context, key CacheKey) (Snapshot, bool, error) {
	payload, err := c.client.GetDel(ctx, c.prefix+key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("take original state: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, false, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return snap, true, nil
}

// Discard removes any entry for key without returning it.
func (c *RedisCache) Discard(ctx context.Context, key CacheKey) error {
	if err := c.client.Del(ctx, c.prefix+key.String()).Err(); err != nil {
		return fmt.Errorf("discard original state: %w", err)
	}
	return nil
}
