package service

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginRateLimiter limita los intentos de login por clave (email normalizado).
// Reset se llama tras un login correcto para que no cuente contra el limite.
type LoginRateLimiter interface {
	Allow(key string) bool
	Reset(key string)
}

type memoryLoginRateLimiter struct {
	mu        sync.Mutex
	window    time.Duration
	max       int
	hits      map[string][]time.Time
	lastSweep time.Time
}

// NewMemoryLoginRateLimiter crea un rate limiter de ventana deslizante en memoria.
func NewMemoryLoginRateLimiter(window time.Duration, max int) LoginRateLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &memoryLoginRateLimiter{
		window: window,
		max:    max,
		hits:   make(map[string][]time.Time),
	}
}

func (l *memoryLoginRateLimiter) Allow(key string) bool {
	key = normalizeEmail(key)
	if key == "" {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now().UTC()
	cutoff := now.Add(-l.window)
	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(cutoff)
		l.lastSweep = now
	}
	kept := recentHits(l.hits[key], cutoff)
	if len(kept) >= l.max {
		l.hits[key] = kept
		return false
	}
	l.hits[key] = append(kept, now)
	return true
}

func (l *memoryLoginRateLimiter) Reset(key string) {
	key = normalizeEmail(key)
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.hits, key)
}

// sweep borra las claves sin intentos dentro de la ventana.
func (l *memoryLoginRateLimiter) sweep(cutoff time.Time) {
	for key, entries := range l.hits {
		kept := recentHits(entries, cutoff)
		if len(kept) == 0 {
			delete(l.hits, key)
			continue
		}
		l.hits[key] = kept
	}
}

func recentHits(entries []time.Time, cutoff time.Time) []time.Time {
	kept := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	return kept
}

const redisLoginAllowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`

type redisLimiterClient interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisLoginRateLimiter struct {
	client redisLimiterClient
	window time.Duration
	max    int
	prefix string
}

// NewRedisLoginRateLimiter usa una ventana fija compartida entre instancias.
func NewRedisLoginRateLimiter(client *redis.Client, window time.Duration, max int) LoginRateLimiter {
	if client == nil {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &redisLoginRateLimiter{
		client: client,
		window: window,
		max:    max,
		prefix: "auth:login:rl:",
	}
}

// Allow deja pasar si Redis falla; el login sigue exigiendo credenciales.
func (l *redisLoginRateLimiter) Allow(key string) bool {
	if l == nil || l.client == nil {
		return true
	}
	normalizedKey := normalizeEmail(key)
	if normalizedKey == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	seconds := int(l.window.Seconds())
	if seconds <= 0 {
		seconds = 60
	}
	count, err := l.client.Eval(ctx, redisLoginAllowScript, []string{l.prefix + normalizedKey}, seconds).Int()
	if err != nil {
		return true
	}
	return count <= l.max
}

func (l *redisLoginRateLimiter) Reset(key string) {
	if l == nil || l.client == nil {
		return
	}
	normalizedKey := normalizeEmail(key)
	if normalizedKey == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	_ = l.client.Del(ctx, l.prefix+normalizedKey).Err()
}
