package archive

import (
	"context"
	"sync"
)

// InMemoryArchive records which rows have been archived, for tests and
// development. Copy is idempotent: already-present ids are no-ops.
type InMemoryArchive struct {
	mu     sync.RWMutex
	tables map[string]map[string]struct{}

	// FailCopy forces the next Copy to fail, for abort-path tests.
	FailCopy error
}

// NewInMemoryArchive creates an empty archive.
func NewInMemoryArchive() *InMemoryArchive {
	return &InMemoryArchive{tables: make(map[string]map[string]struct{})}
}

func (a *InMemoryArchive) Copy(_ context.Context, table string, ids []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.FailCopy != nil {
		return a.FailCopy
	}
	rows, ok := a.tables[table]
	if !ok {
		rows = make(map[string]struct{})
		a.tables[table] = rows
	}
	for _, id := range ids {
		rows[id] = struct{}{}
	}
	return nil
}

func (a *InMemoryArchive) Has(_ context.Context, table string, id string) (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.tables[table][id]
	return ok, nil
}

// Count returns how many rows a table has archived, for test assertions.
func (a *InMemoryArchive) Count(table string) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.tables[table])
}
