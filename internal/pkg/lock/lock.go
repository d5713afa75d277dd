// Package lock provides named, non-blocking mutual exclusion used to keep
// two publishes of the same offering from running at once.
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrLocked is returned by TryLock when the name is already held.
var ErrLocked = errors.New("lock is already held")

// ReleaseFunc gives a held lock back.
type ReleaseFunc func(ctx context.Context) error

// Locker hands out named locks without waiting for them.
type Locker interface {
	TryLock(ctx context.Context, name string) (ReleaseFunc, error)
}

// LocalLocker serialises work inside one process.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalLocker creates a LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: map[string]struct{}{}}
}

// TryLock takes name or fails with ErrLocked.
func (l *LocalLocker) TryLock(_ context.Context, name string) (ReleaseFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[name]; busy {
		return nil, ErrLocked
	}
	l.held[name] = struct{}{}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, name)
			l.mu.Unlock()
		})
		return nil
	}, nil
}
