package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryLocker implements Locker within a single process.
type MemoryLocker struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryLocker constructs an in-process Locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{entries: make(map[string]time.Time), now: time.Now}
}

// Acquire implements Locker.
func (l *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, errors.New("memory locker: ttl must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key = prefixed(key)
	now := l.now()
	if expiry, ok := l.entries[key]; ok && expiry.After(now) {
		return false, nil
	}
	l.entries[key] = now.Add(ttl)
	return true, nil
}
