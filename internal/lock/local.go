package lock

import (
	"context"
	"sync"
)

type localEntry struct {
	sem  chan struct{}
	refs int
}

// LocalLocker serializes access to keys within one process.
type LocalLocker struct {
	mu      sync.Mutex
	entries map[string]*localEntry
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{entries: map[string]*localEntry{}}
}

func (l *LocalLocker) Acquire(ctx context.Context, keys ...string) (Release, error) {
	held := make([]string, 0, len(keys))
	releaseHeld := func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.unlock(held[i])
		}
		held = held[:0]
	}

	for _, key := range keys {
		if key == "" {
			releaseHeld()
			return nil, ErrEmptyKey
		}
		if err := l.lock(ctx, key); err != nil {
			releaseHeld()
			return nil, err
		}
		held = append(held, key)
	}

	var once sync.Once
	return func() { once.Do(releaseHeld) }, nil
}

func (l *LocalLocker) lock(ctx context.Context, key string) error {
	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		entry = &localEntry{sem: make(chan struct{}, 1)}
		l.entries[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.deref(key, entry)
		return ErrLockTimeout
	}
}

func (l *LocalLocker) unlock(key string) {
	l.mu.Lock()
	entry, ok := l.entries[key]
	l.mu.Unlock()
	if !ok {
		return
	}
	<-entry.sem
	l.deref(key, entry)
}

func (l *LocalLocker) deref(key string, entry *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, key)
	}
}
