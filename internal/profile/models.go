package profile

import (
	"time"

	"sentra/internal/fieldcipher"
	id "sentra/pkg/domain"
)

// ThreatLevel is the assessed risk tier for a protected owner.
type ThreatLevel string

const (
	ThreatLow      ThreatLevel = "low"
	ThreatMedium   ThreatLevel = "medium"
	ThreatHigh     ThreatLevel = "high"
	ThreatCritical ThreatLevel = "critical"
)

// ParseThreatLevel validates a caller-supplied threat level.
func ParseThreatLevel(s string) (ThreatLevel, bool) {
	switch ThreatLevel(s) {
	case ThreatLow, ThreatMedium, ThreatHigh, ThreatCritical:
		return ThreatLevel(s), true
	}
	return "", false
}

// Profile is the protected record for one owner. At most one per owner.
// Sensitive fields are stored as encryption envelopes; plaintext never
// touches the store.
type Profile struct {
	OwnerID     id.OwnerID
	Priority    int // 1-5
	ThreatLevel ThreatLevel

	Fields map[string]fieldcipher.Envelope

	RequiresTwoFactor bool
	RequiresBiometric bool
	IPAllowlist       []string

	// LegalHold blocks destruction of this profile and its audit trail
	// regardless of retention age.
	LegalHold bool

	CreatedAt      time.Time
	LastReviewedAt time.Time
	NextReviewAt   time.Time

	// DeletedAt tombstones the profile on account closure. The row is kept
	// until retention archives it.
	DeletedAt *time.Time
}

// Deleted reports whether the profile has been tombstoned.
func (p Profile) Deleted() bool { return p.DeletedAt != nil }
