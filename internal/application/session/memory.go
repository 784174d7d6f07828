package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmca-notices/internal/domain"
)

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is a process-local Store used when no Redis address is
// configured. Values do not survive restarts and are not shared between
// replicas.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memEntry), now: time.Now}
}

func memKey(sessionID, key string) string { return sessionID + ":" + key }

func (m *MemoryStore) Put(_ context.Context, sessionID, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.entries[memKey(sessionID, key)] = e
	return nil
}

func (m *MemoryStore) Get(_ context.Context, sessionID, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookup(memKey(sessionID, key))
}

func (m *MemoryStore) Take(_ context.Context, sessionID, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memKey(sessionID, key)
	v, err := m.lookup(k)
	if err != nil {
		return nil, err
	}
	delete(m.entries, k)
	return v, nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, memKey(sessionID, key))
	return nil
}

// lookup must be called with mu held. Expired entries are removed on access.
func (m *MemoryStore) lookup(k string) ([]byte, error) {
	e, ok := m.entries[k]
	if !ok {
		return nil, fmt.Errorf("session key: %w", domain.ErrNotFound)
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, k)
		return nil, fmt.Errorf("session key expired: %w", domain.ErrNotFound)
	}
	return e.value, nil
}
