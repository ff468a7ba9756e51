package coordinator

import (
	"context"
	"sync"
)

// keyLock is a keyed FIFO lock. Waiters for the same key are granted the
// lock in acquisition order, so queued mutations apply
// first-committed-first-applied instead of racing.
type keyLock struct {
	mu      sync.Mutex
	held    map[string]bool
	waiters map[string][]chan struct{}
}

func newKeyLock() *keyLock {
	return &keyLock{
		held:    make(map[string]bool),
		waiters: make(map[string][]chan struct{}),
	}
}

func (l *keyLock) acquire(ctx context.Context, key string) error {
	l.mu.Lock()
	if !l.held[key] {
		l.held[key] = true
		l.mu.Unlock()
		return nil
	}

	ready := make(chan struct{})
	l.waiters[key] = append(l.waiters[key], ready)
	l.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		select {
		case <-ready:
			// The lock was handed to us while we were cancelling; pass it on.
			l.releaseLocked(key)
		default:
			l.removeWaiter(key, ready)
		}
		l.mu.Unlock()
		return ctx.Err()
	}
}

func (l *keyLock) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.releaseLocked(key)
}

func (l *keyLock) releaseLocked(key string) {
	queue := l.waiters[key]
	if len(queue) == 0 {
		delete(l.held, key)
		delete(l.waiters, key)
		return
	}

	next := queue[0]
	if len(queue) == 1 {
		delete(l.waiters, key)
	} else {
		l.waiters[key] = queue[1:]
	}
	// Hand the lock to the first waiter; held stays true.
	close(next)
}

func (l *keyLock) removeWaiter(key string, ready chan struct{}) {
	queue := l.waiters[key]
	for i, waiter := range queue {
		if waiter == ready {
			l.waiters[key] = append(queue[:i:i], queue[i+1:]...)
			break
		}
	}
	if len(l.waiters[key]) == 0 {
		delete(l.waiters, key)
	}
}
