package policy

import (
	"context"
	"fmt"

	id "sentra/pkg/domain"
)

// EmergencyChecker answers the hot-path "is there an open emergency for this
// owner" query. Injected so the engine stays deterministic under test.
type EmergencyChecker interface {
	HasOpenEmergency(ctx context.Context, ownerID id.OwnerID) (bool, error)
}

// Engine evaluates (subject, action, resource, context) into a Decision.
// Evaluation is an ordered, short-circuiting rule list; the first matching
// rule wins and unmatched requests are denied. The engine performs no I/O of
// its own - the emergency lookup is the injected checker.
type Engine struct {
	emergencies EmergencyChecker
}

// NewEngine builds an Engine over the given emergency checker.
func NewEngine(emergencies EmergencyChecker) (*Engine, error) {
	if emergencies == nil {
		return nil, fmt.Errorf("emergency checker is required")
	}
	return &Engine{emergencies: emergencies}, nil
}

// Evaluate applies the rule chain. Rule order is load-bearing: the emergency
// override is checked before the destructive gate so an active responder is
// never blocked waiting for supervisor sign-off. Availability during an open
// incident wins over strict least-privilege.
//
//  1. Self-access: owner reading their own non-restricted attributes.
//  2. Full-access roles: data-protection administrators.
//  3. Emergency override: responder capability plus an open incident for the
//     owner (or the resource itself flagged emergency/panic). High risk.
//  4. Operator read-only: read with a support or monitoring reason.
//  5. Destructive gate: update/delete on protected resources, and any
//     location-history access by a non-responder, require a verified
//     supervisor approval. High risk when approved.
//  6. Deny by default.
func (e *Engine) Evaluate(ctx context.Context, subject Subject, action Action, resource Resource, reqCtx Context) (Decision, error) {
	// Rule 1: self-access
	if id.OwnerID(subject.ID) == resource.OwnerID && action == ActionRead && !resource.FieldRestricted {
		return allow(CodeSelfAccess), nil
	}

	// Rule 2: full-access roles
	if subject.Has(CapDataProtectionAdmin) {
		return allow(CodeFullAccessRole), nil
	}

	// Rule 3: emergency override
	if subject.Has(CapEmergencyResponder) {
		if resource.IsEmergency || resource.IsPanicMode {
			return allowHighRisk(CodeEmergencyOverride), nil
		}
		open, err := e.emergencies.HasOpenEmergency(ctx, resource.OwnerID)
		if err != nil {
			return Decision{}, fmt.Errorf("emergency lookup for %s: %w", resource.OwnerID, err)
		}
		if open {
			return allowHighRisk(CodeEmergencyOverride), nil
		}
	}

	// Rule 4: operator read-only
	if subject.Has(CapOperatorReadOnly) && action == ActionRead &&
		(reqCtx.Reason == ReasonSupport || reqCtx.Reason == ReasonMonitoring) {
		return allow(CodeOperatorRead), nil
	}

	// Rule 5: destructive / high-risk gate
	needsApproval := (action.destructive() && resource.Protected) ||
		(resource.Type == ResourceLocationHistory && !subject.Has(CapEmergencyResponder))
	if needsApproval {
		if reqCtx.SupervisorApprovalID == "" {
			return deny(CodeApprovalRequired), nil
		}
		return allowHighRisk(CodeSupervisorApproved), nil
	}

	// Rule 6: deny by default
	return deny(CodeNotAuthorized), nil
}
