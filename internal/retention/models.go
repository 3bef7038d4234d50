package retention

import (
	"time"

	"github.com/google/uuid"
)

// Action is what a retention batch did to its rows.
type Action string

const (
	ActionArchive Action = "archive"
	ActionDelete  Action = "delete"
)

// Policy describes how one managed table ages out.
type Policy struct {
	Table string

	// Horizon is how old a row must be before it is eligible.
	Horizon time.Duration

	// LegalBasis is recorded on every action executed under this policy.
	LegalBasis string

	// BatchSize caps how many rows one cycle moves at a time.
	BatchSize int
}

// RetentionAction is the audit row for one executed batch. Logged before the
// destructive half of the batch completes the cycle.
type RetentionAction struct {
	ID          uuid.UUID
	Table       string
	Action      Action
	RecordCount int
	LegalBasis  string
	ExecutedAt  time.Time
}

// Row is the scheduler's view of an archivable record.
type Row struct {
	ID string

	// Protected rows (and high-priority ones) are archived, never hard
	// deleted, to preserve legal traceability.
	Protected    bool
	HighPriority bool

	// LegalHold blocks destruction regardless of age. Scan results should
	// already exclude held rows; the scheduler re-checks as a backstop.
	LegalHold bool
}

// State names the scheduler's position in its cycle, exposed for
// observability.
type State string

const (
	StateIdle          State = "idle"
	StateScanning      State = "scanning"
	StateBatching      State = "batching"
	StateArchiving     State = "archiving"
	StateLoggingAction State = "logging_action"
)
