package policy

import (
	id "sentra/pkg/domain"
)

// Capability is a coarse permission attached to a subject's session.
type Capability string

const (
	// CapDataProtectionAdmin always passes evaluation (full-access role).
	CapDataProtectionAdmin Capability = "data_protection_admin"

	// CapEmergencyResponder unlocks the emergency override when the resource
	// owner has an open incident.
	CapEmergencyResponder Capability = "emergency_responder"

	// CapOperatorReadOnly allows reads for support and monitoring work.
	CapOperatorReadOnly Capability = "operator_read_only"
)

// Action is the operation requested against a resource.
type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionExport Action = "export"
)

// destructive actions require supervisor sign-off on protected resources.
func (a Action) destructive() bool {
	return a == ActionUpdate || a == ActionDelete
}

// AccessReason is why the subject wants access. Parsed from caller input at
// the request boundary; only the values below exist, so a free-text reason
// can never satisfy the operator rule by itself.
type AccessReason string

const (
	ReasonSupport     AccessReason = "support"
	ReasonMonitoring  AccessReason = "monitoring"
	ReasonEmergency   AccessReason = "emergency"
	ReasonDataRequest AccessReason = "data_request"
)

// ParseAccessReason validates a caller-supplied reason string.
func ParseAccessReason(s string) (AccessReason, bool) {
	switch AccessReason(s) {
	case ReasonSupport, ReasonMonitoring, ReasonEmergency, ReasonDataRequest:
		return AccessReason(s), true
	}
	return "", false
}

// ResourceType names the class of protected data being accessed.
type ResourceType string

const (
	ResourceProfileField    ResourceType = "profile_field"
	ResourceLocationHistory ResourceType = "location_history"
	ResourceCommunications  ResourceType = "communications"
	ResourceEmergencyRecord ResourceType = "emergency_record"
	ResourceIdentityDoc     ResourceType = "identity_document"
)

// ParseResourceType validates a caller-supplied resource type string.
func ParseResourceType(s string) (ResourceType, bool) {
	switch ResourceType(s) {
	case ResourceProfileField, ResourceLocationHistory, ResourceCommunications,
		ResourceEmergencyRecord, ResourceIdentityDoc:
		return ResourceType(s), true
	}
	return "", false
}

// Subject is the accessor as seen by the engine. Built from the caller's
// SubjectContext; never read from ambient state.
type Subject struct {
	ID           id.SubjectID
	Capabilities []Capability
	SessionID    string
	IP           string
}

// Has reports whether the subject holds the capability.
func (s Subject) Has(c Capability) bool {
	for _, cap := range s.Capabilities {
		if cap == c {
			return true
		}
	}
	return false
}

// Resource identifies what is being accessed.
type Resource struct {
	Type    ResourceType
	OwnerID id.OwnerID
	Field   string

	// Protected marks resources belonging to a protected profile. The
	// destructive gate only applies to protected resources.
	Protected bool

	// IsEmergency and IsPanicMode flag resources tied to an active incident;
	// either satisfies the emergency override without a tracker lookup.
	IsEmergency bool
	IsPanicMode bool

	// FieldRestricted marks fields the owner cannot read back directly
	// (e.g. internal threat assessments), excluding them from self-access.
	FieldRestricted bool
}

// Context carries per-request evaluation inputs beyond subject and resource.
type Context struct {
	Reason AccessReason

	// SupervisorApprovalID is a verified approval reference. The gateway
	// validates the approval token before evaluation; an invalid or expired
	// token never reaches the engine.
	SupervisorApprovalID string
}

// Effect is the engine's verdict.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// ReasonCode is a stable, caller-visible code explaining the decision.
// Raw rule identifiers are never exposed.
type ReasonCode string

const (
	CodeSelfAccess         ReasonCode = "SELF_ACCESS"
	CodeFullAccessRole     ReasonCode = "FULL_ACCESS_ROLE"
	CodeEmergencyOverride  ReasonCode = "EMERGENCY_OVERRIDE"
	CodeOperatorRead       ReasonCode = "OPERATOR_READ"
	CodeSupervisorApproved ReasonCode = "SUPERVISOR_APPROVED"

	CodeApprovalRequired ReasonCode = "SUPERVISOR_APPROVAL_REQUIRED"
	CodeNotAuthorized    ReasonCode = "NOT_AUTHORIZED"
)

// Decision is the evaluation result. HighRisk annotates accesses that warrant
// real-time alerting regardless of effect.
type Decision struct {
	Effect   Effect
	Reason   ReasonCode
	HighRisk bool
}

// Allowed reports whether the decision permits the access.
func (d Decision) Allowed() bool { return d.Effect == EffectAllow }

func allow(code ReasonCode) Decision {
	return Decision{Effect: EffectAllow, Reason: code}
}

func allowHighRisk(code ReasonCode) Decision {
	return Decision{Effect: EffectAllow, Reason: code, HighRisk: true}
}

func deny(code ReasonCode) Decision {
	return Decision{Effect: EffectDeny, Reason: code}
}
