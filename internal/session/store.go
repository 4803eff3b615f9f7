package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"wallfeed/internal/cache"
	redispkg "wallfeed/pkg/redis"

	"github.com/redis/go-redis/v9"
)

// CredentialStore persists the single credential string. Load returns "" when
// nothing is stored.
type CredentialStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string, ttl time.Duration) error
	Delete(ctx context.Context) error
}

// MemoryStore keeps the credential for the lifetime of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

func (s *MemoryStore) Save(_ context.Context, token string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryStore) Delete(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

// RedisStore shares the credential through Redis so several client processes
// of the same profile see one session. Keys expire with the credential.
type RedisStore struct {
	client redispkg.RedisClient
	key    string
}

// NewRedisStore stores the credential of profile under the session key.
func NewRedisStore(client redispkg.RedisClient, profile string) *RedisStore {
	return &RedisStore{
		client: client,
		key:    cache.SessionKey(profile),
	}
}

func (s *RedisStore) Load(ctx context.Context) (string, error) {
	v, err := s.client.Get(ctx, s.key)
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

func (s *RedisStore) Save(ctx context.Context, token string, ttl time.Duration) error {
	return s.client.Set(ctx, s.key, token, ttl)
}

func (s *RedisStore) Delete(ctx context.Context) error {
	return s.client.Del(ctx, s.key)
}

var (
	_ CredentialStore = (*MemoryStore)(nil)
	_ CredentialStore = (*RedisStore)(nil)
)
