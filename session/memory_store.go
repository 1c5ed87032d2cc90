package session

import (
	"sync"
	"time"
)

type memorySession struct {
	values    map[string]string
	updatedAt time.Time
}

// MemoryStore keeps sessions in process memory
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
	closed   bool
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memorySession),
		now:      time.Now,
	}
}

func (m *MemoryStore) Get(sessionID, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return "", false, ErrClosed
	}

	s, ok := m.sessions[sessionID]
	if !ok {
		return "", false, nil
	}
	value, ok := s.values[key]
	return value, ok, nil
}

func (m *MemoryStore) Set(sessionID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	s, ok := m.sessions[sessionID]
	if !ok {
		s = &memorySession{values: make(map[string]string)}
		m.sessions[sessionID] = s
	}
	s.values[key] = value
	s.updatedAt = m.now()
	return nil
}

func (m *MemoryStore) Delete(sessionID string, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}
	for _, key := range keys {
		delete(s.values, key)
	}
	if len(s.values) == 0 {
		delete(m.sessions, sessionID)
	}
	return nil
}

func (m *MemoryStore) Replace(sessionID string, values map[string]string, remove []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	s, ok := m.sessions[sessionID]
	if !ok {
		if len(values) == 0 {
			return nil
		}
		s = &memorySession{values: make(map[string]string)}
		m.sessions[sessionID] = s
	}
	for _, key := range remove {
		delete(s.values, key)
	}
	for key, value := range values {
		s.values[key] = value
	}
	if len(s.values) == 0 {
		delete(m.sessions, sessionID)
		return nil
	}
	s.updatedAt = m.now()
	return nil
}

func (m *MemoryStore) PurgeIdle(olderThan time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}

	cutoff := m.now().Add(-olderThan)
	var purged int64
	for id, s := range m.sessions {
		if s.updatedAt.Before(cutoff) {
			delete(m.sessions, id)
			purged++
		}
	}
	return purged, nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.sessions = make(map[string]*memorySession)
	return nil
}
