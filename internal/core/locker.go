package core

import (
	"context"
	"sync"
)

// LocalLocker is an in-process Locker. It is enough for the single-process
// deployment; use a distributed Locker when several processes write.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]chan struct{})}
}

// Lock never loses a held lock, so the returned context ends only with ctx or
// unlock.
func (l *LocalLocker) Lock(ctx context.Context, name string) (context.Context, func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[name]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[name] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
		held, cancel := context.WithCancel(ctx)
		var once sync.Once
		return held, func() { once.Do(func() { cancel(); <-slot }) }, nil
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}
