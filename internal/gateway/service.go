// Package gateway is the façade the rest of the platform calls to touch
// protected records. It validates request shape, evaluates policy, performs
// the encrypted operation, and owes the audit trail exactly one record for
// every attempt that reaches policy evaluation.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"sentra/internal/audit"
	"sentra/internal/emergency"
	"sentra/internal/fieldcipher"
	"sentra/internal/gateway/metrics"
	"sentra/internal/policy"
	"sentra/internal/profile"
	id "sentra/pkg/domain"
	"sentra/pkg/platform/sentinel"
)

// restrictedFields are profile fields the owner cannot read back through
// self-access; they hold the platform's own assessments, not the owner's data.
var restrictedFields = map[string]struct{}{
	"threat_assessment": {},
	"risk_notes":        {},
}

// Service implements the access gateway.
type Service struct {
	engine      *policy.Engine
	profiles    *profile.Service
	emergencies *emergency.Service
	recorder    *audit.Recorder
	approvals   *ApprovalVerifier
	metrics     *metrics.Metrics
	logger      *slog.Logger
	tracer      trace.Tracer
}

// ServiceOption configures the Service.
type ServiceOption func(*Service)

// WithMetrics attaches the gateway metrics collector.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// NewService wires the gateway's collaborators.
func NewService(
	engine *policy.Engine,
	profiles *profile.Service,
	emergencies *emergency.Service,
	recorder *audit.Recorder,
	approvals *ApprovalVerifier,
	opts ...ServiceOption,
) (*Service, error) {
	if engine == nil || profiles == nil || emergencies == nil || recorder == nil || approvals == nil {
		return nil, fmt.Errorf("engine, profiles, emergencies, recorder, and approvals are all required")
	}
	s := &Service{
		engine:      engine,
		profiles:    profiles,
		emergencies: emergencies,
		recorder:    recorder,
		approvals:   approvals,
		tracer:      otel.Tracer("sentra/gateway"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Access runs one attempt end to end. Steps and their failure behavior:
//
//	(a) validate shape        -> BadRequest, nothing audited
//	(b) evaluate policy
//	(c) on deny               -> record deny, return Denied/ApprovalRequired
//	(d) on allow, perform op  -> decrypt/encrypt via the field cipher
//	(e) record allow+outcome  -> append failure fails the access
//	(f) high-risk fan-out     -> inside the recorder
//
// Every path past (a) writes exactly one AccessRecord.
func (s *Service) Access(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveAccessLatency(time.Since(start)) }()

	ctx, span := s.tracer.Start(ctx, "gateway.Access")
	defer span.End()

	// (a) validate request shape
	p, err := req.parse()
	if err != nil {
		return nil, accessErr(CodeBadRequest, err.Error())
	}
	span.SetAttributes(
		attribute.String("resource.type", string(p.resType)),
		attribute.String("operation", string(p.action)),
	)

	// A supervisor approval only counts if its token verifies. An invalid
	// or expired token is treated as no approval so the caller gets the
	// retryable approval-required denial, not a hard failure.
	approvalID := ""
	if req.SupervisorApprovalToken != "" {
		approvalID, err = s.approvals.Verify(req.SupervisorApprovalToken)
		if err != nil {
			if s.logger != nil {
				s.logger.WarnContext(ctx, "rejected supervisor approval token", "error", err)
			}
			approvalID = ""
		}
	}

	resource, err := s.buildResource(ctx, p)
	if err != nil {
		return nil, s.recordFailure(ctx, req, p, approvalID, err)
	}

	// (b) evaluate policy
	decision, err := s.engine.Evaluate(ctx, p.subject, p.action, resource, policy.Context{
		Reason:               p.reason,
		SupervisorApprovalID: approvalID,
	})
	if err != nil {
		return nil, s.recordFailure(ctx, req, p, approvalID, err)
	}
	s.metrics.IncrementDecision(string(decision.Effect), string(decision.Reason))
	if decision.Reason == policy.CodeEmergencyOverride {
		s.metrics.IncrementEmergencyOverride()
	}

	record := s.baseRecord(req, p, approvalID)
	record.HighRisk = decision.HighRisk
	record.Reason = string(decision.Reason)

	// (c) deny path
	if !decision.Allowed() {
		record.Decision = audit.DecisionDeny
		record.Outcome = audit.OutcomeDenied
		if _, err := s.record(ctx, record); err != nil {
			return nil, err
		}
		if decision.Reason == policy.CodeApprovalRequired {
			return nil, accessErr(CodeApprovalRequired, string(decision.Reason))
		}
		return nil, accessErr(CodeDenied, string(decision.Reason))
	}

	// (d) perform the operation
	result := &Result{HighRisk: decision.HighRisk}
	record.Decision = audit.DecisionAllow
	record.Outcome = audit.OutcomeSuccess

	opErr := s.perform(ctx, p, req.Payload, result)
	var accessFailure *AccessError
	if opErr != nil {
		switch {
		case errors.Is(opErr, fieldcipher.ErrIntegrity), errors.Is(opErr, fieldcipher.ErrKeyNotFound):
			record.Outcome = audit.OutcomeDecryptionFailure
			accessFailure = accessErr(CodeDecryptionFailure, "protected field could not be decrypted")
		case errors.Is(opErr, sentinel.ErrNotFound):
			record.Outcome = audit.OutcomeError
			accessFailure = accessErr(CodeNotFound, opErr.Error())
		default:
			record.Outcome = audit.OutcomeError
			accessFailure = accessErr(CodeInternal, "access operation failed")
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "access operation failed", "error", opErr)
			}
		}
	}

	// (e) record the terminal outcome; (f) the recorder fans out high risk
	recordID, err := s.record(ctx, record)
	if err != nil {
		return nil, err
	}
	if record.HighRisk {
		s.metrics.IncrementHighRiskAlert()
	}
	if accessFailure != nil {
		return nil, accessFailure
	}
	result.RecordID = recordID
	return result, nil
}

// buildResource assembles the policy engine's view of the target, including
// protection status and panic-mode flags.
func (s *Service) buildResource(ctx context.Context, p parsedRequest) (policy.Resource, error) {
	resource := policy.Resource{
		Type:        p.resType,
		OwnerID:     p.ownerID,
		Field:       p.field,
		IsEmergency: p.resType == policy.ResourceEmergencyRecord,
	}
	if _, restricted := restrictedFields[p.field]; restricted {
		resource.FieldRestricted = true
	}

	prof, err := s.profiles.Get(ctx, p.ownerID)
	switch {
	case err == nil:
		resource.Protected = !prof.Deleted()
	case errors.Is(err, sentinel.ErrNotFound):
		// Owner without a protected profile; the resource is ordinary.
	default:
		return policy.Resource{}, fmt.Errorf("load profile: %w", err)
	}

	panicMode, err := s.emergencies.PanicMode(ctx, p.ownerID)
	if err != nil {
		return policy.Resource{}, fmt.Errorf("panic-mode lookup: %w", err)
	}
	resource.IsPanicMode = panicMode
	return resource, nil
}

// perform executes the allowed operation against the profile store.
func (s *Service) perform(ctx context.Context, p parsedRequest, payload []byte, result *Result) error {
	switch p.action {
	case policy.ActionRead:
		value, err := s.profiles.ReadField(ctx, p.ownerID, p.field)
		if err != nil {
			return err
		}
		result.Value = value
		return nil
	case policy.ActionWrite, policy.ActionUpdate:
		return s.profiles.WriteField(ctx, p.ownerID, p.field, payload)
	case policy.ActionDelete:
		return s.profiles.Tombstone(ctx, p.ownerID)
	case policy.ActionExport:
		fields, err := s.profiles.ExportFields(ctx, p.ownerID)
		if err != nil {
			return err
		}
		result.Fields = fields
		return nil
	}
	return fmt.Errorf("unreachable operation %q", p.action)
}

// record appends one AccessRecord, translating append failure into the
// fail-closed audit error.
func (s *Service) record(ctx context.Context, record audit.AccessRecord) (id.RecordID, error) {
	recordID, err := s.recorder.Record(ctx, record)
	if err != nil {
		s.metrics.IncrementAuditFailure()
		return id.RecordID{}, accessErr(CodeAuditUnavailable, "audit trail unavailable")
	}
	return recordID, nil
}

// recordFailure writes the deny-shaped record for evaluation-path system
// failures so the attempt still appears in the trail, then surfaces an
// internal error.
func (s *Service) recordFailure(ctx context.Context, req Request, p parsedRequest, approvalID string, cause error) error {
	if s.logger != nil {
		s.logger.ErrorContext(ctx, "access evaluation failed", "error", cause)
	}
	record := s.baseRecord(req, p, approvalID)
	record.Decision = audit.DecisionDeny
	record.Reason = "SYSTEM_ERROR"
	record.Outcome = audit.OutcomeError
	if _, err := s.record(ctx, record); err != nil {
		return err
	}
	return accessErr(CodeInternal, "access evaluation failed")
}

func (s *Service) baseRecord(req Request, p parsedRequest, approvalID string) audit.AccessRecord {
	return audit.AccessRecord{
		SubjectID:            p.subject.ID,
		SubjectRoles:         p.roleNames,
		ResourceType:         string(p.resType),
		ResourceOwner:        p.ownerID,
		Field:                p.field,
		Operation:            string(p.action),
		Justification:        req.Justification,
		SupervisorApprovalID: approvalID,
		RequestID:            req.RequestID,
		IP:                   req.Subject.IPAddress,
	}
}

// QueryTrail exposes the audit trail read path to calling workflows.
func (s *Service) QueryTrail(ctx context.Context, q audit.TrailQuery) (audit.Page, error) {
	return s.recorder.QueryTrail(ctx, q)
}
