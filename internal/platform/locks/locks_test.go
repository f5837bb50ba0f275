package locks

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/yungbote/carousel-backend/internal/platform/logger"
)

func TestMemoryLockerExclusive(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryLocker()

	l1, ok, err := m.TryLock(ctx, "carousel:a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first lock: ok=%v err=%v", ok, err)
	}
	if _, ok, _ := m.TryLock(ctx, "carousel:a", time.Minute); ok {
		t.Fatalf("second lock on same key should fail")
	}
	if _, ok, _ := m.TryLock(ctx, "carousel:b", time.Minute); !ok {
		t.Fatalf("different key should lock")
	}
	if err := l1.Unlock(ctx); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if err := l1.Unlock(ctx); !errors.Is(err, ErrNotHeld) {
		t.Fatalf("double unlock: want ErrNotHeld got=%v", err)
	}
	if _, ok, _ := m.TryLock(ctx, "carousel:a", time.Minute); !ok {
		t.Fatalf("relock after unlock should succeed")
	}
}

func TestMemoryLockerExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryLocker()
	now := time.Unix(1_700_000_000, 0)
	m.now = func() time.Time { return now }

	stale, _, _ := m.TryLock(ctx, "k", time.Second)
	now = now.Add(2 * time.Second)
	if _, ok, _ := m.TryLock(ctx, "k", time.Second); !ok {
		t.Fatalf("expired lock should be reclaimable")
	}
	// The stale holder must not release the new holder's lock.
	if err := stale.Unlock(ctx); !errors.Is(err, ErrNotHeld) {
		t.Fatalf("stale unlock: want ErrNotHeld got=%v", err)
	}
}

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis lock tests")
	}
	ctx := context.Background()
	r, err := NewRedisLocker(logger.Nop(), addr, "test:")
	if err != nil {
		t.Fatalf("NewRedisLocker: %v", err)
	}
	defer r.Close()

	l, ok, err := r.TryLock(ctx, "carousel:x", 5*time.Second)
	if err != nil || !ok {
		t.Fatalf("lock: ok=%v err=%v", ok, err)
	}
	if _, ok, _ := r.TryLock(ctx, "carousel:x", 5*time.Second); ok {
		t.Fatalf("second lock should fail")
	}
	if err := l.Unlock(ctx); err != nil {
		t.Fatalf("unlock: %v", err)
	}
}
