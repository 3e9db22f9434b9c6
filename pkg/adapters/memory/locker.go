package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/huddle/pkg/ports"
)

// Locker implements ports.DistributedLocker within one process.
// Locks expire after their TTL like the Redis implementation.
type Locker struct {
	mu    sync.Mutex
	held  map[string]uint64
	seq   uint64
	timer map[string]*time.Timer
}

// NewLocker creates an in-process locker.
func NewLocker() *Locker {
	return &Locker{
		held:  make(map[string]uint64),
		timer: make(map[string]*time.Timer),
	}
}

// Lock polls until the key is free or the context is canceled.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if token, ok := l.tryLock(key, ttl); ok {
			return func(ctx context.Context) error {
				l.release(key, token)
				return nil
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *Locker) tryLock(key string, ttl time.Duration) (uint64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[key]; busy {
		return 0, false
	}
	l.seq++
	token := l.seq
	l.held[key] = token
	if ttl > 0 {
		l.timer[key] = time.AfterFunc(ttl, func() { l.release(key, token) })
	}
	return token, true
}

// release frees the key only if the token still owns it.
func (l *Locker) release(key string, token uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[key] != token {
		return
	}
	delete(l.held, key)
	if t, ok := l.timer[key]; ok {
		t.Stop()
		delete(l.timer, key)
	}
}
