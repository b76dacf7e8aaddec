package cache

import (
	"context"
	"errors"
	"time"

	"github.com/penwyp/go-claude-usage/internal/core/model"
)

// ErrNotFound is returned by a Store when no row matches the lookup.
var ErrNotFound = errors.New("cache entry not found")

// QueryRecord is one cached aggregate result.
type QueryRecord struct {
	Key      string
	Kind     string
	Project  string
	Data     []byte
	CachedAt time.Time
}

// SessionRecord is one cached per-file session summary.
type SessionRecord struct {
	Summary  model.SessionSummary
	FileHash string
	CachedAt time.Time
}

// Filter selects query rows for deletion. Empty fields match everything.
type Filter struct {
	Kind    string
	Project string
}

func (f Filter) match(r *QueryRecord) bool {
	if f.Kind != "" && r.Kind != f.Kind {
		return false
	}
	if f.Project != "" && r.Project != f.Project {
		return false
	}
	return true
}

// Store persists cache rows. Every operation is atomic at the row level:
// a reader sees either the previous or the new row, never a partial one.
type Store interface {
	GetQuery(ctx context.Context, key string) (*QueryRecord, error)
	PutQuery(ctx context.Context, rec *QueryRecord) error
	DeleteQueries(ctx context.Context, f Filter) (int64, error)

	GetSession(ctx context.Context, sessionID, projectFolder string) (*SessionRecord, error)
	PutSession(ctx context.Context, rec *SessionRecord) error
	DeleteSessions(ctx context.Context, projectFolder string) (int64, error)

	Close() error
}

// MissReason explains why a lookup did not produce a usable value.
type MissReason string

const (
	MissNone         MissReason = ""
	MissNotFound     MissReason = "not_found"
	MissExpired      MissReason = "expired"
	MissHashMismatch MissReason = "hash_mismatch"
	MissFileGone     MissReason = "file_gone"
	MissDecode       MissReason = "decode_error"
	MissStoreError   MissReason = "store_error"
)

// expired reports whether a row cached at cachedAt is older than ttl at now.
func expired(cachedAt, now time.Time, ttl time.Duration) bool {
	return now.Sub(cachedAt) > ttl
}
