package profile

import (
	"context"
	"fmt"
	"time"

	"sentra/internal/fieldcipher"
	id "sentra/pkg/domain"
	"sentra/pkg/platform/keymutex"
	"sentra/pkg/platform/sentinel"
)

// reviewInterval is how long an enrollment or rotation keeps a profile
// current before the next scheduled review.
const reviewInterval = 90 * 24 * time.Hour

// Service manages protected profiles and transparently encrypts and decrypts
// their sensitive fields. Auditing the surrounding operation is the access
// gateway's job, not this service's.
//
// Mutations are read-modify-write over the whole profile row, so they hold a
// per-owner lock; concurrent writes for the same owner serialize instead of
// overwriting each other's fields. Cross-owner writes never contend.
type Service struct {
	store  Store
	cipher *fieldcipher.Cipher
	writes *keymutex.KeyedMutex
	now    func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService builds the profile service.
func NewService(store Store, cipher *fieldcipher.Cipher, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("profile store is required")
	}
	if cipher == nil {
		return nil, fmt.Errorf("field cipher is required")
	}
	s := &Service{store: store, cipher: cipher, writes: keymutex.New(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// EnrollInput is the caller-supplied shape of a new protected profile.
type EnrollInput struct {
	OwnerID           id.OwnerID
	Priority          int
	ThreatLevel       ThreatLevel
	Fields            map[string][]byte // plaintext, encrypted before storage
	RequiresTwoFactor bool
	RequiresBiometric bool
	IPAllowlist       []string
}

// Enroll creates the owner's protected profile. Returns sentinel.ErrConflict
// when the owner already has one.
func (s *Service) Enroll(ctx context.Context, in EnrollInput) (Profile, error) {
	if in.OwnerID.IsNil() {
		return Profile{}, fmt.Errorf("owner id is required")
	}
	if in.Priority < 1 || in.Priority > 5 {
		return Profile{}, fmt.Errorf("priority must be between 1 and 5, got %d", in.Priority)
	}

	now := s.now()
	p := Profile{
		OwnerID:           in.OwnerID,
		Priority:          in.Priority,
		ThreatLevel:       in.ThreatLevel,
		Fields:            make(map[string]fieldcipher.Envelope, len(in.Fields)),
		RequiresTwoFactor: in.RequiresTwoFactor,
		RequiresBiometric: in.RequiresBiometric,
		IPAllowlist:       in.IPAllowlist,
		CreatedAt:         now,
		LastReviewedAt:    now,
		NextReviewAt:      now.Add(reviewInterval),
	}
	for name, plaintext := range in.Fields {
		env, err := s.cipher.Encrypt(plaintext)
		if err != nil {
			return Profile{}, fmt.Errorf("encrypt field %q: %w", name, err)
		}
		p.Fields[name] = env
	}

	if err := s.store.Insert(ctx, p); err != nil {
		return Profile{}, fmt.Errorf("enroll owner %s: %w", in.OwnerID, err)
	}
	return p, nil
}

// Get returns the owner's profile, tombstoned or not.
func (s *Service) Get(ctx context.Context, ownerID id.OwnerID) (Profile, error) {
	return s.store.Get(ctx, ownerID)
}

// ReadField decrypts one sensitive field. Integrity and key-lookup failures
// propagate as fieldcipher errors so the gateway can classify them.
func (s *Service) ReadField(ctx context.Context, ownerID id.OwnerID, field string) ([]byte, error) {
	p, err := s.store.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	env, ok := p.Fields[field]
	if !ok {
		return nil, fmt.Errorf("field %q: %w", field, sentinel.ErrNotFound)
	}
	return s.cipher.Decrypt(env)
}

// WriteField encrypts and stores one sensitive field under the active key.
func (s *Service) WriteField(ctx context.Context, ownerID id.OwnerID, field string, plaintext []byte) error {
	release := s.writes.Lock(ownerID.String())
	defer release()

	p, err := s.store.Get(ctx, ownerID)
	if err != nil {
		return err
	}
	if p.Deleted() {
		return fmt.Errorf("profile %s is tombstoned: %w", ownerID, sentinel.ErrInvalidState)
	}

	env, err := s.cipher.Encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("encrypt field %q: %w", field, err)
	}
	if p.Fields == nil {
		p.Fields = make(map[string]fieldcipher.Envelope)
	}
	p.Fields[field] = env
	return s.store.Update(ctx, p)
}

// ExportFields decrypts every sensitive field for a data-subject export.
func (s *Service) ExportFields(ctx context.Context, ownerID id.OwnerID) (map[string][]byte, error) {
	p, err := s.store.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(p.Fields))
	for name, env := range p.Fields {
		plaintext, err := s.cipher.Decrypt(env)
		if err != nil {
			return nil, fmt.Errorf("decrypt field %q: %w", name, err)
		}
		out[name] = plaintext
	}
	return out, nil
}

// Tombstone soft-deletes the profile on account closure. The row remains
// until retention archives it; a second tombstone is a no-op.
func (s *Service) Tombstone(ctx context.Context, ownerID id.OwnerID) error {
	release := s.writes.Lock(ownerID.String())
	defer release()

	p, err := s.store.Get(ctx, ownerID)
	if err != nil {
		return err
	}
	if p.Deleted() {
		return nil
	}
	now := s.now()
	p.DeletedAt = &now
	return s.store.Update(ctx, p)
}

// SetLegalHold flips the destruction block for an owner's profile. While the
// hold is set, retention may not archive or delete the profile or its trail.
func (s *Service) SetLegalHold(ctx context.Context, ownerID id.OwnerID, hold bool) error {
	release := s.writes.Lock(ownerID.String())
	defer release()

	p, err := s.store.Get(ctx, ownerID)
	if err != nil {
		return err
	}
	if p.LegalHold == hold {
		return nil
	}
	p.LegalHold = hold
	return s.store.Update(ctx, p)
}

// Reencrypt re-wraps every field under the active key. Run after key
// rotation so old-key envelopes age out; decrypt still works for any
// envelope not yet rewritten.
func (s *Service) Reencrypt(ctx context.Context, ownerID id.OwnerID) error {
	release := s.writes.Lock(ownerID.String())
	defer release()

	p, err := s.store.Get(ctx, ownerID)
	if err != nil {
		return err
	}

	now := s.now()
	for name, env := range p.Fields {
		plaintext, err := s.cipher.Decrypt(env)
		if err != nil {
			return fmt.Errorf("decrypt field %q for rotation: %w", name, err)
		}
		fresh, err := s.cipher.Encrypt(plaintext)
		if err != nil {
			return fmt.Errorf("re-encrypt field %q: %w", name, err)
		}
		p.Fields[name] = fresh
	}
	p.LastReviewedAt = now
	p.NextReviewAt = now.Add(reviewInterval)
	return s.store.Update(ctx, p)
}
