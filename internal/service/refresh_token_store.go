package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisOpTimeout    = 500 * time.Millisecond
	defaultRefreshTTL = 14 * 24 * time.Hour
)

// RefreshTokenStore registra los jti de refresh tokens vigentes.
// Consume es atomico: de varias llamadas concurrentes con el mismo jti
// solo una recibe ok=true.
type RefreshTokenStore interface {
	Save(jti, memberID string, ttl time.Duration) error
	Consume(jti string) (memberID string, ok bool, err error)
}

type refreshEntry struct {
	memberID  string
	expiresAt time.Time
}

type memoryRefreshTokenStore struct {
	mu      sync.Mutex
	entries map[string]refreshEntry
}

func NewMemoryRefreshTokenStore() RefreshTokenStore {
	return &memoryRefreshTokenStore{entries: make(map[string]refreshEntry)}
}

func (s *memoryRefreshTokenStore) Save(jti, memberID string, ttl time.Duration) error {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultRefreshTTL
	}
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, key)
		}
	}
	s.entries[jti] = refreshEntry{memberID: memberID, expiresAt: now.Add(ttl)}
	return nil
}

func (s *memoryRefreshTokenStore) Consume(jti string) (string, bool, error) {
	jti = strings.TrimSpace(jti)

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, found := s.entries[jti]
	if !found {
		return "", false, nil
	}
	delete(s.entries, jti)
	if time.Now().UTC().After(entry.expiresAt) {
		return "", false, nil
	}
	return entry.memberID, true, nil
}

type redisRefreshClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
}

// redisRefreshTokenStore comparte los jti entre instancias; Redis expira las claves.
type redisRefreshTokenStore struct {
	client     redisRefreshClient
	keyPrefix  string
	defaultTTL time.Duration
}

func NewRedisRefreshTokenStore(client *redis.Client, defaultTTL time.Duration) RefreshTokenStore {
	if client == nil {
		return nil
	}
	return &redisRefreshTokenStore{
		client:     client,
		keyPrefix:  "auth:refresh:",
		defaultTTL: defaultTTL,
	}
}

func (s *redisRefreshTokenStore) key(jti string) string {
	return s.keyPrefix + jti
}

func (s *redisRefreshTokenStore) Save(jti, memberID string, ttl time.Duration) error {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return nil
	}
	// sin TTL la clave no expiraria nunca
	for _, candidate := range []time.Duration{ttl, s.defaultTTL, defaultRefreshTTL} {
		if candidate > 0 {
			ttl = candidate
			break
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return s.client.Set(ctx, s.key(jti), memberID, ttl).Err()
}

// Consume usa GETDEL para que leer y borrar sea una sola operacion.
func (s *redisRefreshTokenStore) Consume(jti string) (string, bool, error) {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return "", false, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	memberID, err := s.client.GetDel(ctx, s.key(jti)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return memberID, true, nil
}
