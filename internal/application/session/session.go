package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmca-notices/internal/domain"
)

const flashKey = "_flash"

// Store persists raw session values. Get returns domain.ErrNotFound when the
// key is absent or expired.
type Store interface {
	Put(ctx context.Context, sessionID, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, sessionID, key string) ([]byte, error)
	// Take returns the value and deletes it in one step.
	Take(ctx context.Context, sessionID, key string) ([]byte, error)
	Delete(ctx context.Context, sessionID, key string) error
}

// Session is the per-request handle on one user session.
type Session struct {
	id    string
	store Store
	ttl   time.Duration
}

func New(id string, store Store, ttl time.Duration) *Session {
	return &Session{id: id, store: store, ttl: ttl}
}

func (s *Session) ID() string { return s.id }

// Put JSON-encodes value under key, replacing any previous value.
func (s *Session) Put(ctx context.Context, key string, value interface{}) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal session value %s: %w", key, err)
	}
	return s.store.Put(ctx, s.id, key, b, s.ttl)
}

// Get decodes the value under key into out. found is false when absent.
func (s *Session) Get(ctx context.Context, key string, out interface{}) (found bool, err error) {
	b, err := s.store.Get(ctx, s.id, key)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, fmt.Errorf("unmarshal session value %s: %w", key, err)
	}
	return true, nil
}

func (s *Session) Forget(ctx context.Context, key string) error {
	return s.store.Delete(ctx, s.id, key)
}

// Flash stores a message that TakeFlash returns exactly once.
func (s *Session) Flash(ctx context.Context, message string) error {
	return s.store.Put(ctx, s.id, flashKey, []byte(message), s.ttl)
}

// TakeFlash returns and clears the pending flash message, "" when none.
func (s *Session) TakeFlash(ctx context.Context) (string, error) {
	b, err := s.store.Take(ctx, s.id, flashKey)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}
