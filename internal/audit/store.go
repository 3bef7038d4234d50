package audit

import (
	"context"
	"time"

	id "sentra/pkg/domain"
)

// TrailQuery selects a slice of the access trail. Partition boundaries are
// invisible to callers: a range spanning several buckets returns one
// consistent, ordered sequence.
type TrailQuery struct {
	// Exactly one of OwnerID or SubjectID should be set; both set means
	// records matching either filter are excluded unless they match both.
	OwnerID   *id.OwnerID
	SubjectID *id.SubjectID

	From time.Time
	To   time.Time

	// Limit caps the page size. Zero means the store default.
	Limit int

	// Cursor resumes a previous query. Opaque and restartable: the same
	// cursor can be replayed after a failure.
	Cursor string
}

// Page is one page of trail results plus the cursor for the next page.
// An empty NextCursor means the trail is exhausted.
type Page struct {
	Records    []AccessRecord
	NextCursor string
}

// Store is the append-only persistence behind the recorder.
type Store interface {
	// Append persists a record. Implementations must be idempotent on
	// record ID so a retried append never duplicates.
	Append(ctx context.Context, record AccessRecord) error

	// Query returns records ordered by (timestamp, seq) ascending.
	Query(ctx context.Context, q TrailQuery) (Page, error)
}
