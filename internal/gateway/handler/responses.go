package handler

import (
	"encoding/base64"
	"time"

	"sentra/internal/audit"
	"sentra/internal/gateway"
)

// AccessResponse is the HTTP response for POST /access.
type AccessResponse struct {
	RecordID string            `json:"record_id"`
	HighRisk bool              `json:"high_risk"`
	Value    string            `json:"value,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// FromResult converts a gateway Result to an HTTP response. Field plaintext
// is base64-encoded on the wire.
func FromResult(result *gateway.Result) *AccessResponse {
	resp := &AccessResponse{
		RecordID: result.RecordID.String(),
		HighRisk: result.HighRisk,
	}
	if result.Value != nil {
		resp.Value = base64.StdEncoding.EncodeToString(result.Value)
	}
	if result.Fields != nil {
		resp.Fields = make(map[string]string, len(result.Fields))
		for name, value := range result.Fields {
			resp.Fields[name] = base64.StdEncoding.EncodeToString(value)
		}
	}
	return resp
}

// TrailResponse is the HTTP response for GET /audit.
type TrailResponse struct {
	Records    []RecordResponse `json:"records"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// RecordResponse is one access record on the wire.
type RecordResponse struct {
	ID                   string    `json:"id"`
	Timestamp            time.Time `json:"timestamp"`
	SubjectID            string    `json:"subject_id"`
	SubjectRoles         []string  `json:"subject_roles,omitempty"`
	ResourceType         string    `json:"resource_type"`
	ResourceOwner        string    `json:"resource_owner"`
	Field                string    `json:"field,omitempty"`
	Operation            string    `json:"operation"`
	Decision             string    `json:"decision"`
	Reason               string    `json:"reason"`
	Outcome              string    `json:"outcome"`
	HighRisk             bool      `json:"high_risk"`
	Justification        string    `json:"justification,omitempty"`
	SupervisorApprovalID string    `json:"supervisor_approval_id,omitempty"`
	RequestID            string    `json:"request_id,omitempty"`
	IP                   string    `json:"ip,omitempty"`
}

// FromPage converts a trail page to an HTTP response.
func FromPage(page audit.Page) *TrailResponse {
	resp := &TrailResponse{
		Records:    make([]RecordResponse, 0, len(page.Records)),
		NextCursor: page.NextCursor,
	}
	for _, rec := range page.Records {
		resp.Records = append(resp.Records, RecordResponse{
			ID:                   rec.ID.String(),
			Timestamp:            rec.Timestamp,
			SubjectID:            rec.SubjectID.String(),
			SubjectRoles:         rec.SubjectRoles,
			ResourceType:         rec.ResourceType,
			ResourceOwner:        rec.ResourceOwner.String(),
			Field:                rec.Field,
			Operation:            rec.Operation,
			Decision:             string(rec.Decision),
			Reason:               rec.Reason,
			Outcome:              string(rec.Outcome),
			HighRisk:             rec.HighRisk,
			Justification:        rec.Justification,
			SupervisorApprovalID: rec.SupervisorApprovalID,
			RequestID:            rec.RequestID,
			IP:                   rec.IP,
		})
	}
	return resp
}
