package retention

import (
	"context"
	"time"
)

// Source is the live store a policy manages. Scan results must exclude rows
// under an active legal hold.
type Source interface {
	// ScanExpired returns up to limit rows older than the cutoff without an
	// active legal hold.
	ScanExpired(ctx context.Context, table string, olderThan time.Time, limit int) ([]Row, error)

	// Delete removes rows from the live store and returns how many went
	// away. Only called after the archive copy is confirmed.
	Delete(ctx context.Context, table string, ids []string) (int, error)
}

// Archive is the external archive storage collaborator. Copy must be
// idempotent: re-copying rows already present is a no-op, detected by
// primary key presence.
type Archive interface {
	Copy(ctx context.Context, table string, ids []string) error
	Has(ctx context.Context, table string, id string) (bool, error)
}

// ActionLog persists exactly one RetentionAction per executed batch.
type ActionLog interface {
	Append(ctx context.Context, action RetentionAction) error
}

// Lease provides mutual exclusion across scheduler instances. Acquire
// returns ok=false when another instance holds the lease; overlapping runs
// are rejected, not queued.
type Lease interface {
	Acquire(ctx context.Context, table string, ttl time.Duration) (release func(), ok bool, err error)
}
