package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"sentra/internal/fieldcipher"
	"sentra/internal/profile"
	id "sentra/pkg/domain"
	"sentra/pkg/platform/sentinel"
)

// PostgresStore persists profiles in the protected_profiles table. Field
// envelopes are stored as JSONB; only ciphertext ever reaches the database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store over an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, p profile.Profile) error {
	fields, err := json.Marshal(p.Fields)
	if err != nil {
		return fmt.Errorf("marshal profile fields: %w", err)
	}

	query := `
		INSERT INTO protected_profiles (
			owner_id, priority, threat_level, fields,
			requires_two_factor, requires_biometric, ip_allowlist, legal_hold,
			created_at, last_reviewed_at, next_review_at, deleted_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (owner_id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(p.OwnerID),
		p.Priority,
		string(p.ThreatLevel),
		fields,
		p.RequiresTwoFactor,
		p.RequiresBiometric,
		pq.Array(p.IPAllowlist),
		p.LegalHold,
		p.CreatedAt,
		p.LastReviewedAt,
		p.NextReviewAt,
		p.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("profile for owner %s: %w", p.OwnerID, sentinel.ErrConflict)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, ownerID id.OwnerID) (profile.Profile, error) {
	query := `
		SELECT owner_id, priority, threat_level, fields,
			   requires_two_factor, requires_biometric, ip_allowlist, legal_hold,
			   created_at, last_reviewed_at, next_review_at, deleted_at
		FROM protected_profiles
		WHERE owner_id = $1
	`
	var (
		p           profile.Profile
		owner       uuid.UUID
		threatLevel string
		fieldsRaw   []byte
		allowlist   pq.StringArray
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(ownerID)).Scan(
		&owner,
		&p.Priority,
		&threatLevel,
		&fieldsRaw,
		&p.RequiresTwoFactor,
		&p.RequiresBiometric,
		&allowlist,
		&p.LegalHold,
		&p.CreatedAt,
		&p.LastReviewedAt,
		&p.NextReviewAt,
		&p.DeletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return profile.Profile{}, fmt.Errorf("profile for owner %s: %w", ownerID, sentinel.ErrNotFound)
	}
	if err != nil {
		return profile.Profile{}, fmt.Errorf("get profile: %w", err)
	}

	p.OwnerID = id.OwnerID(owner)
	p.ThreatLevel = profile.ThreatLevel(threatLevel)
	p.IPAllowlist = allowlist
	p.Fields = make(map[string]fieldcipher.Envelope)
	if len(fieldsRaw) > 0 {
		if err := json.Unmarshal(fieldsRaw, &p.Fields); err != nil {
			return profile.Profile{}, fmt.Errorf("unmarshal profile fields: %w", err)
		}
	}
	return p, nil
}

func (s *PostgresStore) Update(ctx context.Context, p profile.Profile) error {
	fields, err := json.Marshal(p.Fields)
	if err != nil {
		return fmt.Errorf("marshal profile fields: %w", err)
	}

	query := `
		UPDATE protected_profiles
		SET priority = $2, threat_level = $3, fields = $4,
			requires_two_factor = $5, requires_biometric = $6,
			ip_allowlist = $7, legal_hold = $8,
			last_reviewed_at = $9, next_review_at = $10, deleted_at = $11
		WHERE owner_id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(p.OwnerID),
		p.Priority,
		string(p.ThreatLevel),
		fields,
		p.RequiresTwoFactor,
		p.RequiresBiometric,
		pq.Array(p.IPAllowlist),
		p.LegalHold,
		p.LastReviewedAt,
		p.NextReviewAt,
		p.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("profile for owner %s: %w", p.OwnerID, sentinel.ErrNotFound)
	}
	return nil
}
