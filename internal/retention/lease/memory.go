package lease

import (
	"context"
	"sync"
	"time"
)

// InMemoryLease provides single-process mutual exclusion for tests and
// deployments without Redis.
type InMemoryLease struct {
	mu    sync.Mutex
	held  map[string]time.Time
	clock func() time.Time
}

// NewInMemoryLease creates an empty lease table.
func NewInMemoryLease() *InMemoryLease {
	return &InMemoryLease{held: make(map[string]time.Time), clock: time.Now}
}

func (l *InMemoryLease) Acquire(_ context.Context, table string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if expiry, ok := l.held[table]; ok && now.Before(expiry) {
		return nil, false, nil
	}
	l.held[table] = now.Add(ttl)

	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, table)
	}
	return release, true, nil
}
