package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"sentra/internal/emergency"
	id "sentra/pkg/domain"
	"sentra/pkg/platform/sentinel"
)

// PostgresStore persists emergency events in the emergency_events table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store over an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, event emergency.Event) error {
	query := `
		INSERT INTO emergency_events (
			id, owner_id, session_id, type, severity, status,
			triggered_at, responded_at, resolved_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(event.ID),
		uuid.UUID(event.OwnerID),
		event.SessionID,
		event.Type,
		event.Severity,
		string(event.Status),
		event.TriggeredAt,
		event.RespondedAt,
		event.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("insert emergency event: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, eventID id.EventID) (emergency.Event, error) {
	query := `
		SELECT id, owner_id, session_id, type, severity, status,
			   triggered_at, responded_at, resolved_at
		FROM emergency_events
		WHERE id = $1
	`
	event, err := s.scanEvent(s.db.QueryRowContext(ctx, query, uuid.UUID(eventID)))
	if errors.Is(err, sql.ErrNoRows) {
		return emergency.Event{}, fmt.Errorf("event %s: %w", eventID, sentinel.ErrNotFound)
	}
	if err != nil {
		return emergency.Event{}, fmt.Errorf("get emergency event: %w", err)
	}
	return event, nil
}

func (s *PostgresStore) Update(ctx context.Context, event emergency.Event) error {
	query := `
		UPDATE emergency_events
		SET status = $2, responded_at = $3, resolved_at = $4
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(event.ID),
		string(event.Status),
		event.RespondedAt,
		event.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("update emergency event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update emergency event: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("event %s: %w", event.ID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) HasOpenByOwner(ctx context.Context, ownerID id.OwnerID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM emergency_events
			WHERE owner_id = $1 AND status IN ('open', 'investigating')
		)
	`
	var open bool
	if err := s.db.QueryRowContext(ctx, query, uuid.UUID(ownerID)).Scan(&open); err != nil {
		return false, fmt.Errorf("query open emergencies: %w", err)
	}
	return open, nil
}

func (s *PostgresStore) ListOpenByOwner(ctx context.Context, ownerID id.OwnerID) ([]emergency.Event, error) {
	query := `
		SELECT id, owner_id, session_id, type, severity, status,
			   triggered_at, responded_at, resolved_at
		FROM emergency_events
		WHERE owner_id = $1 AND status IN ('open', 'investigating')
		ORDER BY triggered_at
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(ownerID))
	if err != nil {
		return nil, fmt.Errorf("query open emergencies: %w", err)
	}
	defer rows.Close()

	var events []emergency.Event
	for rows.Next() {
		event, err := s.scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan emergency event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate emergency events: %w", err)
	}
	return events, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanEvent(row rowScanner) (emergency.Event, error) {
	var (
		event   emergency.Event
		eventID uuid.UUID
		ownerID uuid.UUID
		status  string
	)
	err := row.Scan(
		&eventID,
		&ownerID,
		&event.SessionID,
		&event.Type,
		&event.Severity,
		&status,
		&event.TriggeredAt,
		&event.RespondedAt,
		&event.ResolvedAt,
	)
	if err != nil {
		return emergency.Event{}, err
	}
	event.ID = id.EventID(eventID)
	event.OwnerID = id.OwnerID(ownerID)
	event.Status = emergency.Status(status)
	return event, nil
}
