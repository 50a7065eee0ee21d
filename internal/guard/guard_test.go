package guard

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func setupLocker(t *testing.T) *RedisLocker {
	t.Helper()
	addr := os.Getenv("CT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CT_TEST_REDIS_ADDR not set; skipping integration test")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client)
}

func TestAcquireIsExclusive(t *testing.T) {
	l := setupLocker(t)
	ctx := context.Background()
	key := "test:" + uuid.NewString()

	release, ok, err := l.Acquire(ctx, key, 5*time.Second)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	if _, ok, err := l.Acquire(ctx, key, 5*time.Second); err != nil || ok {
		t.Fatalf("second acquire must fail: ok=%v err=%v", ok, err)
	}
	release()
	release2, ok, err := l.Acquire(ctx, key, 5*time.Second)
	if err != nil || !ok {
		t.Fatalf("acquire after release: ok=%v err=%v", ok, err)
	}
	release2()
}

func TestReleaseAfterExpiryKeepsNewHolder(t *testing.T) {
	l := setupLocker(t)
	ctx := context.Background()
	key := "test:" + uuid.NewString()

	stale, ok, _ := l.Acquire(ctx, key, 100*time.Millisecond)
	if !ok {
		t.Fatal("first acquire failed")
	}
	time.Sleep(200 * time.Millisecond)
	fresh, ok, _ := l.Acquire(ctx, key, 5*time.Second)
	if !ok {
		t.Fatal("expired lock not reacquired")
	}
	stale()
	if _, ok, _ := l.Acquire(ctx, key, time.Second); ok {
		t.Fatal("stale release removed the new holder's lock")
	}
	fresh()
}
