package redisinfra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmca-notices/internal/config"
	"github.com/dmca-notices/internal/domain"
	"github.com/go-redis/redis/v8"
)

const keyPrefix = "session:"

// NewClient connects to Redis and verifies the connection with a PING.
func NewClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
	}
	return client, nil
}

// SessionStore keeps session values under "session:<id>:<key>" with a TTL.
type SessionStore struct {
	client redis.Cmdable
}

func NewSessionStore(client redis.Cmdable) *SessionStore {
	return &SessionStore{client: client}
}

func sessionKey(sessionID, key string) string {
	return keyPrefix + sessionID + ":" + key
}

func (s *SessionStore) Put(ctx context.Context, sessionID, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, sessionKey(sessionID, key), value, ttl).Err(); err != nil {
		return fmt.Errorf("save session value: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, sessionID, key string) ([]byte, error) {
	b, err := s.client.Get(ctx, sessionKey(sessionID, key)).Bytes()
	return b, mapErr(err)
}

func (s *SessionStore) Take(ctx context.Context, sessionID, key string) ([]byte, error) {
	b, err := s.client.GetDel(ctx, sessionKey(sessionID, key)).Bytes()
	return b, mapErr(err)
}

func (s *SessionStore) Delete(ctx context.Context, sessionID, key string) error {
	return s.client.Del(ctx, sessionKey(sessionID, key)).Err()
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.Nil):
		return fmt.Errorf("session key: %w", domain.ErrNotFound)
	default:
		return fmt.Errorf("read session value: %w", err)
	}
}
