package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sentra/internal/retention"
)

// AgedRow pairs a retention row with its age for the in-memory source.
type AgedRow struct {
	retention.Row
	CreatedAt time.Time
}

// InMemorySource is a Source over seeded rows, for tests and development.
type InMemorySource struct {
	mu     sync.Mutex
	tables map[string][]AgedRow
}

// NewInMemorySource creates an empty source.
func NewInMemorySource() *InMemorySource {
	return &InMemorySource{tables: make(map[string][]AgedRow)}
}

// Seed adds rows to a table.
func (s *InMemorySource) Seed(table string, rows ...AgedRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = append(s.tables[table], rows...)
}

// Remaining returns the ids still present in a table, for test assertions.
func (s *InMemorySource) Remaining(table string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, row := range s.tables[table] {
		ids = append(ids, row.ID)
	}
	return ids
}

func (s *InMemorySource) ScanExpired(_ context.Context, table string, olderThan time.Time, limit int) ([]retention.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []retention.Row
	for _, row := range s.tables[table] {
		if row.LegalHold {
			continue
		}
		if row.CreatedAt.Before(olderThan) {
			expired = append(expired, row.Row)
			if len(expired) == limit {
				break
			}
		}
	}
	return expired, nil
}

func (s *InMemorySource) Delete(_ context.Context, table string, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doomed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		doomed[id] = struct{}{}
	}

	var kept []AgedRow
	deleted := 0
	for _, row := range s.tables[table] {
		if _, gone := doomed[row.ID]; gone {
			if row.LegalHold {
				return deleted, fmt.Errorf("row %s under legal hold", row.ID)
			}
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	s.tables[table] = kept
	return deleted, nil
}

// InMemoryActionLog collects retention actions, for tests and development.
type InMemoryActionLog struct {
	mu      sync.Mutex
	actions []retention.RetentionAction
}

// NewInMemoryActionLog creates an empty log.
func NewInMemoryActionLog() *InMemoryActionLog {
	return &InMemoryActionLog{}
}

func (l *InMemoryActionLog) Append(_ context.Context, action retention.RetentionAction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.actions = append(l.actions, action)
	return nil
}

// Actions returns all logged actions.
func (l *InMemoryActionLog) Actions() []retention.RetentionAction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]retention.RetentionAction{}, l.actions...)
}
