package cache

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/penwyp/go-claude-usage/internal/core/model"
	"github.com/penwyp/go-claude-usage/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type payload struct {
	Rows  []string `json:"rows"`
	Total float64  `json:"total"`
}

func TestQueryCacheRoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &stepClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	qc := NewQueryCache(NewMemoryStore(), 5*time.Minute, clock, nil)

	want := payload{Rows: []string{"2025-06-01", "2025-05-31"}, Total: 12.5}
	qc.Put(ctx, model.KindDaily, "daily", "", want)

	var got payload
	require.True(t, qc.Get(ctx, model.KindDaily, "daily", &got))
	assert.Equal(t, want, got)

	clock.Advance(5 * time.Minute)
	assert.True(t, qc.Get(ctx, model.KindDaily, "daily", &got), "exactly at TTL is still fresh")

	clock.Advance(time.Second)
	assert.False(t, qc.Get(ctx, model.KindDaily, "daily", &got))
}

func TestQueryCacheMissingKey(t *testing.T) {
	qc := NewQueryCache(NewMemoryStore(), time.Minute, nil, nil)
	var got payload
	assert.False(t, qc.Get(context.Background(), model.KindSummary, "nope", &got))
}

func TestQueryCacheUndecodable(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	clock := util.FixedClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, store.PutQuery(ctx, &QueryRecord{Key: "k", Data: []byte("{broken"), CachedAt: clock.Now()}))

	qc := NewQueryCache(store, time.Minute, clock, nil)
	var got payload
	assert.False(t, qc.Get(ctx, model.KindDaily, "k", &got))
}

func TestQueryCacheDisabled(t *testing.T) {
	ctx := context.Background()
	qc := NewQueryCache(nil, time.Minute, nil, nil)
	assert.False(t, qc.Enabled())

	qc.Put(ctx, model.KindDaily, "k", "", payload{Total: 1})
	var got payload
	assert.False(t, qc.Get(ctx, model.KindDaily, "k", &got))

	n, err := qc.Invalidate(ctx, "", "")
	assert.NoError(t, err)
	assert.Zero(t, n)

	var nilCache *QueryCache
	assert.False(t, nilCache.Get(ctx, model.KindDaily, "k", &got))
}

func TestQueryCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	qc := NewQueryCache(NewMemoryStore(), time.Minute, nil, nil)

	qc.Put(ctx, model.KindDaily, BuildKey(model.KindDaily, "a", nil), "a", payload{})
	qc.Put(ctx, model.KindDaily, BuildKey(model.KindDaily, "b", nil), "b", payload{})

	n, err := qc.Invalidate(ctx, "", "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var got payload
	assert.False(t, qc.Get(ctx, model.KindDaily, "daily:project:a", &got))
	assert.True(t, qc.Get(ctx, model.KindDaily, "daily:project:b", &got))
}

func TestQueryCacheConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	qc := NewQueryCache(NewMemoryStore(), time.Minute, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				qc.Put(ctx, model.KindSummary, "summary", "", payload{Total: float64(i)})
				var got payload
				if qc.Get(ctx, model.KindSummary, "summary", &got) {
					assert.GreaterOrEqual(t, got.Total, 0.0)
				}
			}
		}(i)
	}
	wg.Wait()
}

func writeSessionFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestSessionCacheValidation(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "proj", "abc.jsonl")
	writeSessionFile(t, path, `{"type":"user"}`+"\n")

	clock := &stepClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	sc := NewSessionCache(NewMemoryStore(), 5*time.Minute, clock, nil)

	summary := model.SessionSummary{ID: "abc", ProjectFolder: "proj", Summary: "hello", TotalMessages: 1}

	hash, err := util.FileHash(path)
	require.NoError(t, err)
	sc.Put(ctx, summary, hash)

	got, ok := sc.Get(ctx, "abc", "proj", path)
	require.True(t, ok)
	assert.Equal(t, "hello", got.Summary)

	t.Run("hash change invalidates within TTL", func(t *testing.T) {
		writeSessionFile(t, path, `{"type":"user"}`+"\n"+`{"type":"assistant"}`+"\n")
		_, ok := sc.Get(ctx, "abc", "proj", path)
		assert.False(t, ok)

		hash, err := util.FileHash(path)
		require.NoError(t, err)
		sc.Put(ctx, summary, hash)
		_, ok = sc.Get(ctx, "abc", "proj", path)
		assert.True(t, ok)
	})

	t.Run("expiry invalidates", func(t *testing.T) {
		clock.Advance(5*time.Minute + time.Second)
		_, ok := sc.Get(ctx, "abc", "proj", path)
		assert.False(t, ok)
	})

	t.Run("missing file invalidates", func(t *testing.T) {
		hash, err := util.FileHash(path)
		require.NoError(t, err)
		sc.Put(ctx, summary, hash)
		require.NoError(t, os.Remove(path))
		_, ok := sc.Get(ctx, "abc", "proj", path)
		assert.False(t, ok)
	})
}

func TestSessionCacheSQLite(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "proj", "s1.jsonl")
	writeSessionFile(t, path, "{}\n")

	store, err := OpenSQLite(filepath.Join(dir, "cache.db"))
	require.NoError(t, err)
	defer store.Close()

	sc := NewSessionCache(store, time.Minute, nil, nil)
	hash, err := util.FileHash(path)
	require.NoError(t, err)
	sc.Put(ctx, model.SessionSummary{ID: "s1", ProjectFolder: "proj", Summary: "x"}, hash)

	got, ok := sc.Get(ctx, "s1", "proj", path)
	require.True(t, ok)
	assert.Equal(t, "x", got.Summary)

	n, err := sc.Invalidate(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
