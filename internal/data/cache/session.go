package cache

import (
	"context"
	"errors"
	"time"

	"github.com/penwyp/go-claude-usage/internal/core/model"
	"github.com/penwyp/go-claude-usage/internal/telemetry"
	"github.com/penwyp/go-claude-usage/internal/util"
)

const sessionKind = "session_summary"

// SessionCache holds per-file session summaries. An entry is trusted only
// while it is younger than the TTL and the source file still hashes to the
// value recorded at write time.
type SessionCache struct {
	store   Store
	ttl     time.Duration
	clock   util.Clock
	metrics *telemetry.Metrics
}

func NewSessionCache(store Store, ttl time.Duration, clock util.Clock, metrics *telemetry.Metrics) *SessionCache {
	if clock == nil {
		clock = util.SystemClock
	}
	return &SessionCache{store: store, ttl: ttl, clock: clock, metrics: metrics}
}

func (c *SessionCache) Enabled() bool {
	return c != nil && c.store != nil
}

// Get returns the cached summary for the session file at path.
func (c *SessionCache) Get(ctx context.Context, sessionID, projectFolder, path string) (*model.SessionSummary, bool) {
	if !c.Enabled() {
		return nil, false
	}
	summary, reason := c.lookup(ctx, sessionID, projectFolder, path)
	if reason != MissNone {
		util.LogDebug("session cache miss",
			util.F("session", sessionID), util.F("project", projectFolder), util.F("reason", string(reason)))
		c.metrics.CacheMiss(ctx, sessionKind, string(reason))
		return nil, false
	}
	c.metrics.CacheHit(ctx, sessionKind)
	return summary, true
}

func (c *SessionCache) lookup(ctx context.Context, sessionID, projectFolder, path string) (*model.SessionSummary, MissReason) {
	rec, err := c.store.GetSession(ctx, sessionID, projectFolder)
	if errors.Is(err, ErrNotFound) {
		return nil, MissNotFound
	}
	if err != nil {
		util.LogWarn("session cache read failed", util.F("session", sessionID), util.F("error", err))
		return nil, MissStoreError
	}
	if expired(rec.CachedAt, c.clock.Now(), c.ttl) {
		return nil, MissExpired
	}

	hash, err := util.FileHash(path)
	if err != nil {
		return nil, MissFileGone
	}
	if hash != rec.FileHash {
		return nil, MissHashMismatch
	}

	summary := rec.Summary
	return &summary, MissNone
}

// Put records summary together with the hash of its source file taken before
// the file was parsed.
func (c *SessionCache) Put(ctx context.Context, summary model.SessionSummary, fileHash string) {
	if !c.Enabled() || fileHash == "" {
		return
	}
	rec := &SessionRecord{
		Summary:  summary,
		FileHash: fileHash,
		CachedAt: c.clock.Now(),
	}
	if err := c.store.PutSession(ctx, rec); err != nil {
		util.LogWarn("session cache write failed", util.F("session", summary.ID), util.F("error", err))
	}
}

// Invalidate drops cached summaries for projectFolder, or all of them.
func (c *SessionCache) Invalidate(ctx context.Context, projectFolder string) (int64, error) {
	if !c.Enabled() {
		return 0, nil
	}
	return c.store.DeleteSessions(ctx, projectFolder)
}
