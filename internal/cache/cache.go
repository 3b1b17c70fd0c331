// Package cache memoizes the Constraint Manager's merged per-round
// parameter view (internal/constraints.Params) under a caller-built key
// that fingerprints the dataset's round-constraint table and the
// configuration. It is a pure optimization: a miss or a
// Redis outage only costs a recomputation of constraints.MergeParameters,
// never a different answer, because MergeParameters is the single
// deterministic source of truth.
//
// Redis is tried first via github.com/redis/go-redis/v9; any error
// from it (including "unreachable") falls back automatically to a
// sync.RWMutex-guarded local map with TTL eviction.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cigdist/huoyuan-allocator/internal/constraints"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a merged parameter view stays cached before a
// fresh MergeParameters call is forced.
const DefaultTTL = 10 * time.Minute

// localEntry is one row of the in-process fallback tier.
type localEntry struct {
	params    *constraints.Params
	expiresAt time.Time
}

// ParamsCache is the two-tier cache: Redis when reachable, an
// in-process map otherwise. A nil *redis.Client is valid and makes
// ParamsCache behave as local-only, for tests and offline CLI runs.
type ParamsCache struct {
	redis *redis.Client
	ttl   time.Duration

	mu    sync.RWMutex
	local map[string]localEntry
}

// New builds a cache. client may be nil (local-only).
func New(client *redis.Client) *ParamsCache {
	return &ParamsCache{
		redis: client,
		ttl:   DefaultTTL,
		local: make(map[string]localEntry),
	}
}

// Get returns the cached parameters for key, or ok=false on a miss in
// both tiers. A Redis value that fails to decode is treated like a
// Redis miss, and the local tier is consulted.
func (c *ParamsCache) Get(ctx context.Context, key string) (*constraints.Params, bool) {
	if c.redis != nil {
		if raw, err := c.redis.Get(ctx, key).Bytes(); err == nil {
			var params constraints.Params
			if jsonErr := json.Unmarshal(raw, &params); jsonErr == nil {
				return &params, true
			}
		}
		// Any Redis error (miss, timeout, connection refused) falls
		// through to the local tier rather than propagating.
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.local[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.params, true
}

// Set writes through both tiers: the local tier always, then Redis when
// a client is configured. A JSON encoding or Redis error is returned to
// the caller; the local entry is already stored by then. A failed write
// just means the next Get recomputes, never a correctness problem.
func (c *ParamsCache) Set(ctx context.Context, key string, params *constraints.Params) error {
	c.mu.Lock()
	c.local[key] = localEntry{params: params, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()

	if c.redis == nil {
		return nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, key, raw, c.ttl).Err()
}

// Invalidate drops key from the local tier and best-effort from Redis.
// Used when a configuration change means the cached parameters for a
// fingerprint must never be served again — a rebuild, never a mutation
// of the cached value in place.
func (c *ParamsCache) Invalidate(ctx context.Context, key string) {
	c.mu.Lock()
	delete(c.local, key)
	c.mu.Unlock()

	if c.redis != nil {
		c.redis.Del(ctx, key)
	}
}
