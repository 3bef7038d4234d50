package gateway

import (
	"fmt"

	"sentra/internal/policy"
	id "sentra/pkg/domain"
)

// SubjectContext is who is asking, supplied explicitly by the caller on every
// request. Nothing here is read from ambient state.
type SubjectContext struct {
	SubjectID    string   `json:"subject_id"`
	Capabilities []string `json:"capabilities"`
	SessionID    string   `json:"session_id"`
	IPAddress    string   `json:"ip_address"`
}

// ResourceRef identifies what is being accessed.
type ResourceRef struct {
	Type    string `json:"type"`
	OwnerID string `json:"owner_id"`
	Field   string `json:"field,omitempty"`
}

// Request is one access attempt against a protected resource.
type Request struct {
	Subject  SubjectContext `json:"subject"`
	Resource ResourceRef    `json:"resource"`

	Operation     string `json:"operation"`
	Reason        string `json:"reason"`
	Justification string `json:"justification,omitempty"`

	// SupervisorApprovalToken is a signed approval JWT when the caller's
	// workflow collected supervisor sign-off.
	SupervisorApprovalToken string `json:"supervisor_approval_token,omitempty"`

	// Payload is the plaintext for write/update operations.
	Payload []byte `json:"payload,omitempty"`

	RequestID string `json:"request_id,omitempty"`
}

// Result is a granted access. Value carries the decrypted field for reads;
// Fields carries the full export.
type Result struct {
	RecordID id.RecordID
	HighRisk bool
	Value    []byte
	Fields   map[string][]byte
}

// parsedRequest is the validated, typed form of a Request.
type parsedRequest struct {
	subject   policy.Subject
	action    policy.Action
	resType   policy.ResourceType
	ownerID   id.OwnerID
	field     string
	reason    policy.AccessReason
	roleNames []string
}

// parse validates request shape. Any failure here is a BadRequest: the
// resource was never touched and no audit record is owed.
func (r Request) parse() (parsedRequest, error) {
	var p parsedRequest

	subjectID, err := id.ParseSubjectID(r.Subject.SubjectID)
	if err != nil {
		return p, err
	}
	ownerID, err := id.ParseOwnerID(r.Resource.OwnerID)
	if err != nil {
		return p, err
	}

	resType, ok := policy.ParseResourceType(r.Resource.Type)
	if !ok {
		return p, fmt.Errorf("unknown resource type %q", r.Resource.Type)
	}

	switch policy.Action(r.Operation) {
	case policy.ActionRead, policy.ActionWrite, policy.ActionUpdate, policy.ActionDelete, policy.ActionExport:
		p.action = policy.Action(r.Operation)
	default:
		return p, fmt.Errorf("unknown operation %q", r.Operation)
	}

	reason, ok := policy.ParseAccessReason(r.Reason)
	if !ok {
		return p, fmt.Errorf("unknown access reason %q", r.Reason)
	}

	caps := make([]policy.Capability, 0, len(r.Subject.Capabilities))
	for _, c := range r.Subject.Capabilities {
		caps = append(caps, policy.Capability(c))
	}

	p.subject = policy.Subject{
		ID:           subjectID,
		Capabilities: caps,
		SessionID:    r.Subject.SessionID,
		IP:           r.Subject.IPAddress,
	}
	p.resType = resType
	p.ownerID = ownerID
	p.field = r.Resource.Field
	p.reason = reason
	p.roleNames = r.Subject.Capabilities
	return p, nil
}
