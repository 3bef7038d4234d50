package store

import (
	"context"
	"sort"
	"sync"

	"sentra/internal/audit"
)

const defaultPageSize = 100

// InMemoryStore is a partitioned, append-only store for tests and
// development. Appends take a global sequence number under the mutex, so
// records for the same resource (and everything else) get a consistent total
// order even under concurrent writers.
type InMemoryStore struct {
	mu         sync.RWMutex
	partitions map[string][]audit.AccessRecord
	seen       map[string]struct{}
	nextSeq    uint64
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		partitions: make(map[string][]audit.AccessRecord),
		seen:       make(map[string]struct{}),
	}
}

func (s *InMemoryStore) Append(_ context.Context, record audit.AccessRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Idempotent on record ID so recorder retries never duplicate.
	key := record.ID.String()
	if _, dup := s.seen[key]; dup {
		return nil
	}
	s.seen[key] = struct{}{}

	s.nextSeq++
	record.Seq = s.nextSeq
	s.partitions[record.Partition] = append(s.partitions[record.Partition], record)
	return nil
}

func (s *InMemoryStore) Query(_ context.Context, q audit.TrailQuery) (audit.Page, error) {
	s.mu.RLock()
	var matched []audit.AccessRecord
	for _, records := range s.partitions {
		for _, r := range records {
			if matches(r, q) {
				matched = append(matched, r)
			}
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].Seq < matched[j].Seq
		}
		return matched[i].Timestamp.Before(matched[j].Timestamp)
	})

	if q.Cursor != "" {
		ts, seq, err := audit.DecodeCursor(q.Cursor)
		if err != nil {
			return audit.Page{}, err
		}
		i := sort.Search(len(matched), func(i int) bool {
			r := matched[i]
			if r.Timestamp.Equal(ts) {
				return r.Seq > seq
			}
			return r.Timestamp.After(ts)
		})
		matched = matched[i:]
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	page := audit.Page{}
	if len(matched) > limit {
		page.Records = matched[:limit]
		last := page.Records[limit-1]
		page.NextCursor = audit.EncodeCursor(last.Timestamp, last.Seq)
	} else {
		page.Records = matched
	}
	return page, nil
}

// Count returns the total number of stored records, for test assertions.
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, records := range s.partitions {
		n += len(records)
	}
	return n
}

// Partitions returns the populated bucket keys, for test assertions.
func (s *InMemoryStore) Partitions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.partitions))
	for k := range s.partitions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func matches(r audit.AccessRecord, q audit.TrailQuery) bool {
	if q.OwnerID != nil && r.ResourceOwner != *q.OwnerID {
		return false
	}
	if q.SubjectID != nil && r.SubjectID != *q.SubjectID {
		return false
	}
	if !q.From.IsZero() && r.Timestamp.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && !r.Timestamp.Before(q.To) {
		return false
	}
	return true
}
