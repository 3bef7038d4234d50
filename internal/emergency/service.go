package emergency

import (
	"context"
	"fmt"
	"time"

	id "sentra/pkg/domain"
	"sentra/pkg/platform/keymutex"
	"sentra/pkg/platform/sentinel"
)

// Service is the emergency state tracker consulted by the policy engine.
// Concurrent opens for the same owner are permitted; resolving one incident
// leaves the others open.
//
// Status transitions hold a per-event lock so two concurrent resolutions
// cannot both pass the open-status check; exactly one wins and the other
// observes the terminal state.
type Service struct {
	store       Store
	transitions *keymutex.KeyedMutex
	now         func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService builds the tracker over a store.
func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("emergency store is required")
	}
	s := &Service{store: store, transitions: keymutex.New(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// OpenInput is the caller-supplied shape of a new incident.
type OpenInput struct {
	OwnerID   id.OwnerID
	SessionID string
	Type      string
	Severity  int
}

// Open records a new incident and returns it. The event is visible to
// HasOpenEmergency as soon as Open returns.
func (s *Service) Open(ctx context.Context, in OpenInput) (Event, error) {
	if in.OwnerID.IsNil() {
		return Event{}, fmt.Errorf("owner id is required")
	}
	if in.Severity < 1 || in.Severity > 5 {
		return Event{}, fmt.Errorf("severity must be between 1 and 5, got %d", in.Severity)
	}

	event := Event{
		ID:          id.NewEventID(),
		OwnerID:     in.OwnerID,
		SessionID:   in.SessionID,
		Type:        in.Type,
		Severity:    in.Severity,
		Status:      StatusOpen,
		TriggeredAt: s.now(),
	}
	if err := s.store.Insert(ctx, event); err != nil {
		return Event{}, fmt.Errorf("open emergency: %w", err)
	}
	return event, nil
}

// Respond marks an open incident as under investigation.
func (s *Service) Respond(ctx context.Context, eventID id.EventID) (Event, error) {
	release := s.transitions.Lock(eventID.String())
	defer release()

	event, err := s.store.Get(ctx, eventID)
	if err != nil {
		return Event{}, fmt.Errorf("respond to emergency %s: %w", eventID, err)
	}
	if event.Status != StatusOpen {
		return Event{}, fmt.Errorf("respond to emergency %s in status %q: %w", eventID, event.Status, sentinel.ErrInvalidState)
	}

	now := s.now()
	event.Status = StatusInvestigating
	event.RespondedAt = &now
	if err := s.store.Update(ctx, event); err != nil {
		return Event{}, fmt.Errorf("respond to emergency %s: %w", eventID, err)
	}
	return event, nil
}

// Resolve closes an incident with a terminal outcome. Other incidents for the
// same owner are unaffected.
func (s *Service) Resolve(ctx context.Context, eventID id.EventID, outcome Outcome) (Event, error) {
	if outcome != StatusResolved && outcome != StatusFalseAlarm {
		return Event{}, fmt.Errorf("invalid resolution outcome %q", outcome)
	}

	release := s.transitions.Lock(eventID.String())
	defer release()

	event, err := s.store.Get(ctx, eventID)
	if err != nil {
		return Event{}, fmt.Errorf("resolve emergency %s: %w", eventID, err)
	}
	if !event.Status.Open() {
		return Event{}, fmt.Errorf("resolve emergency %s in status %q: %w", eventID, event.Status, sentinel.ErrInvalidState)
	}

	now := s.now()
	event.Status = outcome
	event.ResolvedAt = &now
	if err := s.store.Update(ctx, event); err != nil {
		return Event{}, fmt.Errorf("resolve emergency %s: %w", eventID, err)
	}
	return event, nil
}

// HasOpenEmergency is the policy engine's hot-path query.
func (s *Service) HasOpenEmergency(ctx context.Context, ownerID id.OwnerID) (bool, error) {
	return s.store.HasOpenByOwner(ctx, ownerID)
}

// PanicMode reports whether any open incident for the owner has a severity
// that flags the owner's resources as panic-flagged.
func (s *Service) PanicMode(ctx context.Context, ownerID id.OwnerID) (bool, error) {
	events, err := s.store.ListOpenByOwner(ctx, ownerID)
	if err != nil {
		return false, err
	}
	for _, e := range events {
		if e.PanicMode() {
			return true, nil
		}
	}
	return false, nil
}
