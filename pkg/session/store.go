package session

import (
	"context"
	"sync"
	"time"
)

// Store is the interface for session storage backends.
type Store interface {
	// Get returns the session with the given id, ErrNotFound if there is none and
	// ErrExpired if it has expired. Expired sessions are removed.
	Get(ctx context.Context, id string) (*Session, error)

	// Set stores a session, replacing any with the same id.
	Set(ctx context.Context, s *Session) error

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// Cleanup removes expired sessions and reports how many were removed.
	Cleanup(ctx context.Context) (int, error)
}

// MemoryStore keeps sessions in process memory. Get returns the stored pointer, so
// every caller shares the session's mutex.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session), now: time.Now}
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if s.expiredAt(m.now()) {
		_ = m.Delete(ctx, id)
		return nil, ErrExpired
	}
	return s, nil
}

func (m *MemoryStore) Set(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) Cleanup(ctx context.Context) (int, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if s.expiredAt(now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored sessions, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

var _ Store = (*MemoryStore)(nil)

// RunCleanup calls store.Cleanup every interval until ctx is done.
func RunCleanup(ctx context.Context, store Store, interval time.Duration, onRemoved func(n int, err error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Cleanup(ctx)
			if onRemoved != nil && (n > 0 || err != nil) {
				onRemoved(n, err)
			}
		}
	}
}
