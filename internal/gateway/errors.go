package gateway

import "fmt"

// Code is a stable, caller-visible error class. Callers branch on the code,
// never on internal rule identifiers.
type Code string

const (
	// CodeBadRequest: malformed input, no side effects, nothing audited.
	CodeBadRequest Code = "bad_request"

	// CodeDenied: policy refusal, audited.
	CodeDenied Code = "denied"

	// CodeApprovalRequired: a Denied subtype signaling the caller may retry
	// with supervisor sign-off.
	CodeApprovalRequired Code = "supervisor_approval_required"

	// CodeDecryptionFailure: integrity or key error, audited,
	// incident-worthy.
	CodeDecryptionFailure Code = "decryption_failure"

	// CodeAuditUnavailable: the audit append failed, which fails the whole
	// access. An unaudited access is a compliance violation.
	CodeAuditUnavailable Code = "audit_unavailable"

	// CodeNotFound: the resource or field does not exist.
	CodeNotFound Code = "not_found"

	// CodeInternal: unexpected system failure.
	CodeInternal Code = "internal"
)

// AccessError is the gateway's failure result.
type AccessError struct {
	Code   Code
	Reason string
}

func (e *AccessError) Error() string {
	if e.Reason == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

func accessErr(code Code, reason string) *AccessError {
	return &AccessError{Code: code, Reason: reason}
}
