package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps cache rows in a sqlite database so results survive
// across CLI invocations.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and migrates it.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if path == ":memory:" {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(2)
	}

	s := &SQLiteStore{db: db}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the cache schema.
func (s *SQLiteStore) Migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS usage_cache (
		cache_key TEXT PRIMARY KEY,
		cache_type TEXT NOT NULL,
		project_path TEXT NOT NULL DEFAULT '',
		data BLOB NOT NULL,
		cached_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_usage_cache_type ON usage_cache(cache_type);
	CREATE INDEX IF NOT EXISTS idx_usage_cache_project ON usage_cache(project_path);

	CREATE TABLE IF NOT EXISTS session_cache (
		session_id TEXT NOT NULL,
		project_folder TEXT NOT NULL,
		project_name TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		modified_at INTEGER NOT NULL,
		size_bytes INTEGER NOT NULL DEFAULT 0,
		total_messages INTEGER NOT NULL DEFAULT 0,
		total_tool_calls INTEGER NOT NULL DEFAULT 0,
		file_hash TEXT NOT NULL,
		cached_at INTEGER NOT NULL,
		PRIMARY KEY (session_id, project_folder)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate cache schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetQuery(ctx context.Context, key string) (*QueryRecord, error) {
	rec := &QueryRecord{Key: key}
	var cachedAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT cache_type, project_path, data, cached_at
		FROM usage_cache WHERE cache_key = ?
	`, key).Scan(&rec.Kind, &rec.Project, &rec.Data, &cachedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}
	rec.CachedAt = time.Unix(0, cachedAt).UTC()
	return rec, nil
}

func (s *SQLiteStore) PutQuery(ctx context.Context, rec *QueryRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_cache (cache_key, cache_type, project_path, data, cached_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			cache_type = excluded.cache_type,
			project_path = excluded.project_path,
			data = excluded.data,
			cached_at = excluded.cached_at
	`, rec.Key, rec.Kind, rec.Project, rec.Data, rec.CachedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteQueries(ctx context.Context, f Filter) (int64, error) {
	var (
		where []string
		args  []any
	)
	if f.Kind != "" {
		where = append(where, "cache_type = ?")
		args = append(args, f.Kind)
	}
	if f.Project != "" {
		where = append(where, "project_path = ?")
		args = append(args, f.Project)
	}

	query := "DELETE FROM usage_cache"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete cache entries: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) GetSession(ctx context.Context, sessionID, projectFolder string) (*SessionRecord, error) {
	rec := &SessionRecord{}
	rec.Summary.ID = sessionID
	rec.Summary.ProjectFolder = projectFolder

	var modifiedAt, cachedAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT project_name, summary, modified_at, size_bytes,
		       total_messages, total_tool_calls, file_hash, cached_at
		FROM session_cache WHERE session_id = ? AND project_folder = ?
	`, sessionID, projectFolder).Scan(
		&rec.Summary.ProjectName,
		&rec.Summary.Summary,
		&modifiedAt,
		&rec.Summary.SizeBytes,
		&rec.Summary.TotalMessages,
		&rec.Summary.TotalToolCalls,
		&rec.FileHash,
		&cachedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session cache: %w", err)
	}
	rec.Summary.ModifiedAt = time.Unix(0, modifiedAt).UTC()
	rec.CachedAt = time.Unix(0, cachedAt).UTC()
	return rec, nil
}

func (s *SQLiteStore) PutSession(ctx context.Context, rec *SessionRecord) error {
	sum := rec.Summary
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_cache (
			session_id, project_folder, project_name, summary, modified_at,
			size_bytes, total_messages, total_tool_calls, file_hash, cached_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, project_folder) DO UPDATE SET
			project_name = excluded.project_name,
			summary = excluded.summary,
			modified_at = excluded.modified_at,
			size_bytes = excluded.size_bytes,
			total_messages = excluded.total_messages,
			total_tool_calls = excluded.total_tool_calls,
			file_hash = excluded.file_hash,
			cached_at = excluded.cached_at
	`, sum.ID, sum.ProjectFolder, sum.ProjectName, sum.Summary, sum.ModifiedAt.UnixNano(),
		sum.SizeBytes, sum.TotalMessages, sum.TotalToolCalls, rec.FileHash, rec.CachedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to write session cache: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteSessions(ctx context.Context, projectFolder string) (int64, error) {
	query := "DELETE FROM session_cache"
	var args []any
	if projectFolder != "" {
		query += " WHERE project_folder = ?"
		args = append(args, projectFolder)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete session cache: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
