// Package locks provides short-lived advisory locks keyed by string.
package locks

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrNotHeld = errors.New("lock not held")

type Lock interface {
	Key() string
	Unlock(ctx context.Context) error
}

// Locker hands out non-blocking advisory locks. TryLock reports ok=false when
// another holder owns key. Locks expire after ttl so a crashed holder cannot
// wedge the key forever.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (Lock, bool, error)
}

// MemoryLocker is an in-process Locker for single-replica deployments and tests.
type MemoryLocker struct {
	mu   sync.Mutex
	gen  uint64
	held map[string]memEntry
	now  func() time.Time
}

type memEntry struct {
	gen     uint64
	expires time.Time
}

var _ Locker = (*MemoryLocker)(nil)

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: map[string]memEntry{}, now: time.Now}
}

func (m *MemoryLocker) TryLock(_ context.Context, key string, ttl time.Duration) (Lock, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if e, ok := m.held[key]; ok && now.Before(e.expires) {
		return nil, false, nil
	}
	m.gen++
	m.held[key] = memEntry{gen: m.gen, expires: now.Add(ttl)}
	return &memLock{owner: m, key: key, gen: m.gen}, true, nil
}

type memLock struct {
	owner *MemoryLocker
	key   string
	gen   uint64
}

func (l *memLock) Key() string { return l.key }

func (l *memLock) Unlock(context.Context) error {
	l.owner.mu.Lock()
	defer l.owner.mu.Unlock()
	e, ok := l.owner.held[l.key]
	if !ok || e.gen != l.gen {
		return ErrNotHeld
	}
	delete(l.owner.held, l.key)
	return nil
}
