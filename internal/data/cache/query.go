package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-claude-usage/internal/telemetry"
	"github.com/penwyp/go-claude-usage/internal/util"
)

// QueryCache stores serialized aggregate results with a TTL. A QueryCache
// built on a nil Store misses on every Get and drops every Put.
type QueryCache struct {
	store   Store
	ttl     time.Duration
	clock   util.Clock
	metrics *telemetry.Metrics
}

func NewQueryCache(store Store, ttl time.Duration, clock util.Clock, metrics *telemetry.Metrics) *QueryCache {
	if clock == nil {
		clock = util.SystemClock
	}
	return &QueryCache{store: store, ttl: ttl, clock: clock, metrics: metrics}
}

// Enabled reports whether results are actually stored.
func (c *QueryCache) Enabled() bool {
	return c != nil && c.store != nil
}

// Get decodes the cached result for key into dest. It reports whether dest
// was filled; any failure is a miss.
func (c *QueryCache) Get(ctx context.Context, kind, key string, dest any) bool {
	if !c.Enabled() {
		return false
	}
	reason := c.lookup(ctx, key, dest)
	if reason != MissNone {
		util.LogDebug("query cache miss", util.F("key", key), util.F("reason", string(reason)))
		c.metrics.CacheMiss(ctx, kind, string(reason))
		return false
	}
	c.metrics.CacheHit(ctx, kind)
	return true
}

func (c *QueryCache) lookup(ctx context.Context, key string, dest any) MissReason {
	rec, err := c.store.GetQuery(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return MissNotFound
	}
	if err != nil {
		util.LogWarn("query cache read failed", util.F("key", key), util.F("error", err))
		return MissStoreError
	}
	if expired(rec.CachedAt, c.clock.Now(), c.ttl) {
		return MissExpired
	}
	if err := sonic.Unmarshal(rec.Data, dest); err != nil {
		return MissDecode
	}
	return MissNone
}

// Put upserts value under key. Failures are logged and otherwise ignored.
func (c *QueryCache) Put(ctx context.Context, kind, key, project string, value any) {
	if !c.Enabled() {
		return
	}

	data, err := sonic.Marshal(value)
	if err != nil {
		util.LogWarn("query cache encode failed", util.F("key", key), util.F("error", err))
		return
	}

	rec := &QueryRecord{
		Key:      key,
		Kind:     kind,
		Project:  project,
		Data:     data,
		CachedAt: c.clock.Now(),
	}
	if err := c.store.PutQuery(ctx, rec); err != nil {
		util.LogWarn("query cache write failed", util.F("key", key), util.F("error", err))
	}
}

// Invalidate deletes cached results matching kind and project; empty values
// act as wildcards.
func (c *QueryCache) Invalidate(ctx context.Context, kind, project string) (int64, error) {
	if !c.Enabled() {
		return 0, nil
	}
	n, err := c.store.DeleteQueries(ctx, Filter{Kind: kind, Project: project})
	if err != nil {
		return 0, err
	}
	util.LogDebug("query cache invalidated",
		util.F("kind", kind), util.F("project", project), util.F("rows", n))
	return n, nil
}
