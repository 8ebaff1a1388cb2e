package memory

import (
	"context"
	"sync"
)

// Locker is a per-transaction mutex table for single-process deployments.
// Multi-process deployments should use the Redis locker instead.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	ch   chan struct{} // capacity 1; holding the token means holding the lock
	refs int
}

// NewLocker creates an empty locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*lockEntry)}
}

// Lock blocks until the per-transaction lock is acquired or ctx is done.
func (l *Locker) Lock(ctx context.Context, transactionID string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[transactionID]
	if !ok {
		entry = &lockEntry{ch: make(chan struct{}, 1)}
		l.locks[transactionID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
		return func() {
			<-entry.ch
			l.release(transactionID, entry)
		}, nil
	case <-ctx.Done():
		l.release(transactionID, entry)
		return nil, ctx.Err()
	}
}

func (l *Locker) release(transactionID string, entry *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, transactionID)
	}
}
