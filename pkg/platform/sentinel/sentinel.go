package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so services can translate them into the gateway's
// error taxonomy.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: entity already exists (e.g., second profile for an owner)
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrLegalHold: destruction blocked by an active legal hold
// - ErrUnavailable: service or resource temporarily unavailable
//
// For validation errors (bad input, missing fields), fail at the gateway boundary.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrLegalHold    = errors.New("legal hold")
	ErrUnavailable  = errors.New("unavailable")
)
