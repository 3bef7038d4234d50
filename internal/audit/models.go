package audit

import (
	"time"

	id "sentra/pkg/domain"
)

// Decision is the recorded policy outcome for an access attempt.
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionDeny  Decision = "deny"
)

// Outcome is what actually happened after an allow. Denied attempts carry
// OutcomeDenied so every record has a terminal outcome.
type Outcome string

const (
	OutcomeSuccess           Outcome = "success"
	OutcomeDenied            Outcome = "denied"
	OutcomeDecryptionFailure Outcome = "decryption_failure"
	OutcomeError             Outcome = "error"
)

// AccessRecord is one row of the append-only access trail. Every gateway
// invocation that reaches policy evaluation produces exactly one, regardless
// of the result. Once written it is never updated or deleted before its
// retention horizon.
type AccessRecord struct {
	ID        id.RecordID
	Timestamp time.Time

	// Partition is the monthly time bucket used for storage routing and
	// retention batching. Derived from Timestamp; transparent to readers.
	Partition string

	// Seq is assigned by the store on append. Records for the same resource
	// observe a consistent total order through it.
	Seq uint64

	SubjectID    id.SubjectID
	SubjectRoles []string

	ResourceType  string
	ResourceOwner id.OwnerID
	Field         string
	Operation     string

	Decision Decision
	Reason   string
	Outcome  Outcome
	HighRisk bool

	Justification        string
	SupervisorApprovalID string

	RequestID string
	IP        string
}

// PartitionFor returns the monthly bucket a timestamp routes to.
func PartitionFor(t time.Time) string {
	return t.UTC().Format("2006-01")
}
