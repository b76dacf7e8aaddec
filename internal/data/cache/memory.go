package cache

import (
	"context"
	"sync"
)

type sessionKey struct {
	id     string
	folder string
}

// MemoryStore is a process-local Store. Values are copied on the way in and
// out so callers never share backing arrays with the map.
type MemoryStore struct {
	mu       sync.RWMutex
	queries  map[string]QueryRecord
	sessions map[sessionKey]SessionRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		queries:  make(map[string]QueryRecord),
		sessions: make(map[sessionKey]SessionRecord),
	}
}

func (m *MemoryStore) GetQuery(_ context.Context, key string) (*QueryRecord, error) {
	m.mu.RLock()
	rec, ok := m.queries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	rec.Data = append([]byte(nil), rec.Data...)
	return &rec, nil
}

func (m *MemoryStore) PutQuery(_ context.Context, rec *QueryRecord) error {
	stored := *rec
	stored.Data = append([]byte(nil), rec.Data...)

	m.mu.Lock()
	m.queries[rec.Key] = stored
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) DeleteQueries(_ context.Context, f Filter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for key, rec := range m.queries {
		if f.match(&rec) {
			delete(m.queries, key)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) GetSession(_ context.Context, sessionID, projectFolder string) (*SessionRecord, error) {
	m.mu.RLock()
	rec, ok := m.sessions[sessionKey{sessionID, projectFolder}]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (m *MemoryStore) PutSession(_ context.Context, rec *SessionRecord) error {
	m.mu.Lock()
	m.sessions[sessionKey{rec.Summary.ID, rec.Summary.ProjectFolder}] = *rec
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) DeleteSessions(_ context.Context, projectFolder string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for key := range m.sessions {
		if projectFolder == "" || key.folder == projectFolder {
			delete(m.sessions, key)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Close() error { return nil }
