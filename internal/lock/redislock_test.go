package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestWithLockRuns(t *testing.T) {
	m := Mutex{R: newTestClient(t)}
	ran := false
	err := m.WithLock(context.Background(), "doc", time.Second, func(context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, ran)
}

func TestWithLockSerializes(t *testing.T) {
	client := newTestClient(t)
	m := Mutex{R: client, RetryBackoff: 5 * time.Millisecond}

	counter := 0
	done := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			done <- m.WithLock(context.Background(), "doc", time.Second, func(context.Context) error {
				v := counter
				time.Sleep(10 * time.Millisecond)
				counter = v + 1
				return nil
			})
		}()
	}
	require.NoError(t, <-done)
	require.NoError(t, <-done)
	require.Equal(t, 2, counter)
}

func TestWithLockContextCancelled(t *testing.T) {
	client := newTestClient(t)
	m := Mutex{R: client, RetryBackoff: 5 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, client.Set(ctx, "kasir:lock:doc", "held-elsewhere", 0).Err())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	err := m.WithLock(ctx, "doc", time.Second, func(context.Context) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}
