// Package domain holds the typed identifiers shared across the subsystem.
//
// Identifiers are domain primitives backed by UUIDs. Construct them via the
// Parse functions at trust boundaries so invalid input is rejected before it
// reaches services; direct casting bypasses validation.
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// OwnerID identifies the user a protected record belongs to.
type OwnerID uuid.UUID

// SubjectID identifies the accessor making a request.
type SubjectID uuid.UUID

// EventID identifies an emergency event.
type EventID uuid.UUID

// RecordID identifies an access record in the audit log.
type RecordID uuid.UUID

// ParseOwnerID validates and returns an OwnerID.
func ParseOwnerID(s string) (OwnerID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return OwnerID{}, fmt.Errorf("invalid owner id: %w", err)
	}
	return OwnerID(u), nil
}

// ParseSubjectID validates and returns a SubjectID.
func ParseSubjectID(s string) (SubjectID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return SubjectID{}, fmt.Errorf("invalid subject id: %w", err)
	}
	return SubjectID(u), nil
}

// ParseEventID validates and returns an EventID.
func ParseEventID(s string) (EventID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return EventID{}, fmt.Errorf("invalid event id: %w", err)
	}
	return EventID(u), nil
}

// NewOwnerID returns a random OwnerID.
func NewOwnerID() OwnerID { return OwnerID(uuid.New()) }

// NewSubjectID returns a random SubjectID.
func NewSubjectID() SubjectID { return SubjectID(uuid.New()) }

// NewEventID returns a random EventID.
func NewEventID() EventID { return EventID(uuid.New()) }

// NewRecordID returns a random RecordID.
func NewRecordID() RecordID { return RecordID(uuid.New()) }

func (id OwnerID) String() string   { return uuid.UUID(id).String() }
func (id SubjectID) String() string { return uuid.UUID(id).String() }
func (id EventID) String() string   { return uuid.UUID(id).String() }
func (id RecordID) String() string  { return uuid.UUID(id).String() }

func (id OwnerID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id SubjectID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id RecordID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
