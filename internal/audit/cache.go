package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"retailcore/internal/audit/metrics"
)

// CacheKey identifies one cached original-state snapshot.
type CacheKey struct {
	Entity string
	ID     int64
}

func (k CacheKey) String() string {
	return fmt.Sprintf("%s:%d", k.Entity, k.ID)
}

// OriginalStateCache holds the snapshot of an entity as it looked when loaded,
// so the update reaction can diff against it without an extra read.
//
// Take has read-once semantics: the first caller gets the snapshot and removes
// it. Under write contention on the same row the loser of that race gets
// nothing and its update audit is skipped - a stale baseline is never served.
// The cache adds no locking beyond its own map operations; row-level
// exclusivity is the storage layer's business.
type OriginalStateCache interface {
	Put(ctx context.Context, key CacheKey, snap Snapshot) error
	Take(ctx context.Context, key CacheKey) (Snapshot, bool, error)
	Discard(ctx context.Context, key CacheKey) error
}

type cacheEntry struct {
	snap     Snapshot
	storedAt time.Time
}

// MemoryCache is the in-process original-state cache. Entries are normally
// consumed by the matching update or discarded by the delete path; the TTL
// sweeper bounds memory against entities that are loaded but never mutated
// (read-only browsing).
type MemoryCache struct {
	mu      sync.Mutex
	entries map[CacheKey]cacheEntry

	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewMemoryCache builds a cache whose entries expire after ttl. Metrics may be
// nil.
func NewMemoryCache(ttl time.Duration, logger *slog.Logger, m *metrics.Metrics) *MemoryCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &MemoryCache{
		entries: make(map[CacheKey]cacheEntry),
		ttl:     ttl,
		logger:  logger,
		metrics: m,
	}
}

// Put stores (or overwrites) the snapshot for key.
func (c *MemoryCache) Put(_ context.Context, key CacheKey, snap Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{snap: snap, storedAt: time.Now()}
	c.gaugeLocked()
	return nil
}

// Take atomically returns and removes the snapshot for key.
func (c *MemoryCache) Take(_ context.Context, key CacheKey) (Snapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	delete(c.entries, key)
	c.gaugeLocked()
	return entry.snap, true, nil
}

// Discard removes any entry for key without returning it.
func (c *MemoryCache) Discard(_ context.Context, key CacheKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.gaugeLocked()
	return nil
}

// Len returns the current number of cached snapshots.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep evicts expired entries every interval until ctx is cancelled.
func (c *MemoryCache) Sweep(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.EvictExpiredAt(time.Now())
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// EvictExpiredAt removes entries older than the TTL as of the given time.
// Exported for testability; the sweeper passes wall-clock time.
func (c *MemoryCache) EvictExpiredAt(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for key, entry := range c.entries {
		if now.Sub(entry.storedAt) > c.ttl {
			delete(c.entries, key)
			evicted++
		}
	}
	if evicted > 0 {
		if c.metrics != nil {
			c.metrics.IncCacheEvictions(evicted)
		}
		if c.logger != nil {
			c.logger.Debug("evicted stale original-state snapshots", "count", evicted)
		}
	}
	c.gaugeLocked()
}

func (c *MemoryCache) gaugeLocked() {
	if c.metrics != nil {
		c.metrics.SetCacheEntries(len(c.entries))
	}
}
