package emergency

import (
	"time"

	id "sentra/pkg/domain"
)

// Status tracks the lifecycle of a safety incident.
type Status string

const (
	StatusOpen          Status = "open"
	StatusInvestigating Status = "investigating"
	StatusResolved      Status = "resolved"
	StatusFalseAlarm    Status = "false_alarm"
)

// Open reports whether the incident still unlocks the emergency override.
// An incident under investigation is still an active incident.
func (s Status) Open() bool {
	return s == StatusOpen || s == StatusInvestigating
}

// Outcome closes an incident. Only terminal statuses are valid outcomes.
type Outcome = Status

// Event is a safety incident tied to an owner, optionally to a ride/session.
// An owner may have any number of concurrent open events.
type Event struct {
	ID        id.EventID
	OwnerID   id.OwnerID
	SessionID string
	Type      string
	Severity  int // 1-5
	Status    Status

	TriggeredAt time.Time
	RespondedAt *time.Time
	ResolvedAt  *time.Time
}

// PanicMode reports whether the event's severity marks the owner's resources
// as panic-flagged for policy purposes.
func (e Event) PanicMode() bool { return e.Severity >= 4 }
