package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"sentra/internal/retention"
)

// Managed table names the Postgres source knows how to age out.
const (
	TableAccessRecords     = "access_records"
	TableProtectedProfiles = "protected_profiles"
)

// PostgresSource scans and deletes expired rows in the live store. Each
// managed table needs its own scan shape because protection and priority
// live in different columns.
type PostgresSource struct {
	db *sql.DB
}

// NewPostgresSource creates a source over an open database handle.
func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

func (s *PostgresSource) ScanExpired(ctx context.Context, table string, olderThan time.Time, limit int) ([]retention.Row, error) {
	var query string
	switch table {
	case TableAccessRecords:
		// Access records for protected or high-risk accesses must be
		// archived, never hard-deleted.
		query = `
			SELECT r.id::text, r.high_risk OR p.owner_id IS NOT NULL, COALESCE(p.priority, 0) >= 4, COALESCE(p.legal_hold, false)
			FROM access_records r
			LEFT JOIN protected_profiles p ON p.owner_id = r.resource_owner
			WHERE r.timestamp < $1 AND COALESCE(p.legal_hold, false) = false
			ORDER BY r.timestamp
			LIMIT $2
		`
	case TableProtectedProfiles:
		// Only tombstoned profiles age out; live profiles are never scanned.
		query = `
			SELECT owner_id::text, true, priority >= 4, legal_hold
			FROM protected_profiles
			WHERE deleted_at IS NOT NULL AND deleted_at < $1 AND legal_hold = false
			ORDER BY deleted_at
			LIMIT $2
		`
	default:
		return nil, fmt.Errorf("unmanaged table %q", table)
	}

	rows, err := s.db.QueryContext(ctx, query, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("scan expired %s: %w", table, err)
	}
	defer rows.Close()

	var out []retention.Row
	for rows.Next() {
		var row retention.Row
		if err := rows.Scan(&row.ID, &row.Protected, &row.HighPriority, &row.LegalHold); err != nil {
			return nil, fmt.Errorf("scan expired row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired rows: %w", err)
	}
	return out, nil
}

func (s *PostgresSource) Delete(ctx context.Context, table string, ids []string) (int, error) {
	var query string
	switch table {
	case TableAccessRecords:
		query = `DELETE FROM access_records WHERE id = ANY($1::uuid[])`
	case TableProtectedProfiles:
		query = `DELETE FROM protected_profiles WHERE owner_id = ANY($1::uuid[]) AND legal_hold = false`
	default:
		return 0, fmt.Errorf("unmanaged table %q", table)
	}

	res, err := s.db.ExecContext(ctx, query, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", table, err)
	}
	return int(affected), nil
}

// PostgresArchive copies rows into archive tables inside the same database.
// Physical archive storage elsewhere slots in behind the same interface.
type PostgresArchive struct {
	db *sql.DB
}

// NewPostgresArchive creates an archive over an open database handle.
func NewPostgresArchive(db *sql.DB) *PostgresArchive {
	return &PostgresArchive{db: db}
}

// Copy moves rows by primary key with INSERT ... SELECT. Idempotent via
// ON CONFLICT DO NOTHING, so re-running a partially archived batch is safe.
func (a *PostgresArchive) Copy(ctx context.Context, table string, ids []string) error {
	var query string
	switch table {
	case TableAccessRecords:
		query = `
			INSERT INTO archived_access_records
			SELECT * FROM access_records WHERE id = ANY($1::uuid[])
			ON CONFLICT (id) DO NOTHING
		`
	case TableProtectedProfiles:
		query = `
			INSERT INTO archived_protected_profiles
			SELECT * FROM protected_profiles WHERE owner_id = ANY($1::uuid[])
			ON CONFLICT (owner_id) DO NOTHING
		`
	default:
		return fmt.Errorf("unmanaged table %q", table)
	}
	if _, err := a.db.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("archive copy %s: %w", table, err)
	}
	return nil
}

func (a *PostgresArchive) Has(ctx context.Context, table string, id string) (bool, error) {
	var query string
	switch table {
	case TableAccessRecords:
		query = `SELECT EXISTS (SELECT 1 FROM archived_access_records WHERE id = $1::uuid)`
	case TableProtectedProfiles:
		query = `SELECT EXISTS (SELECT 1 FROM archived_protected_profiles WHERE owner_id = $1::uuid)`
	default:
		return false, fmt.Errorf("unmanaged table %q", table)
	}
	var present bool
	if err := a.db.QueryRowContext(ctx, query, id).Scan(&present); err != nil {
		return false, fmt.Errorf("archive membership %s/%s: %w", table, id, err)
	}
	return present, nil
}

// PostgresActionLog appends retention actions to the retention_actions table.
type PostgresActionLog struct {
	db *sql.DB
}

// NewPostgresActionLog creates an action log over an open database handle.
func NewPostgresActionLog(db *sql.DB) *PostgresActionLog {
	return &PostgresActionLog{db: db}
}

// Append inserts one action row. Idempotent on action ID.
func (l *PostgresActionLog) Append(ctx context.Context, action retention.RetentionAction) error {
	query := `
		INSERT INTO retention_actions (id, target_table, action, record_count, legal_basis, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := l.db.ExecContext(ctx, query,
		action.ID,
		action.Table,
		string(action.Action),
		action.RecordCount,
		action.LegalBasis,
		action.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("insert retention action: %w", err)
	}
	return nil
}
