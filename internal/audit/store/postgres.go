package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"sentra/internal/audit"
	id "sentra/pkg/domain"
)

// PostgresStore appends access records to the access_records table. The
// partition column routes rows to monthly child tables; seq is a BIGSERIAL so
// concurrent appends for the same resource still observe one total order.
// Rows are never updated or deleted here; only the retention scheduler may
// move them past their horizon.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store over an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append inserts a record. Idempotent via ON CONFLICT DO NOTHING so recorder
// retries after a transient failure never duplicate.
func (s *PostgresStore) Append(ctx context.Context, record audit.AccessRecord) error {
	query := `
		INSERT INTO access_records (
			id, timestamp, partition, subject_id, subject_roles,
			resource_type, resource_owner, field, operation,
			decision, reason, outcome, high_risk,
			justification, supervisor_approval_id, request_id, ip
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(record.ID),
		record.Timestamp,
		record.Partition,
		uuid.UUID(record.SubjectID),
		pq.Array(record.SubjectRoles),
		record.ResourceType,
		uuid.UUID(record.ResourceOwner),
		record.Field,
		record.Operation,
		string(record.Decision),
		record.Reason,
		string(record.Outcome),
		record.HighRisk,
		record.Justification,
		record.SupervisorApprovalID,
		record.RequestID,
		record.IP,
	)
	if err != nil {
		return fmt.Errorf("insert access record: %w", err)
	}
	return nil
}

// Query pages through the trail with keyset pagination on (timestamp, seq).
func (s *PostgresStore) Query(ctx context.Context, q audit.TrailQuery) (audit.Page, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	query := `
		SELECT id, timestamp, partition, seq, subject_id, subject_roles,
			   resource_type, resource_owner, field, operation,
			   decision, reason, outcome, high_risk,
			   justification, supervisor_approval_id, request_id, ip
		FROM access_records
		WHERE 1=1
	`
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.OwnerID != nil {
		query += " AND resource_owner = " + arg(uuid.UUID(*q.OwnerID))
	}
	if q.SubjectID != nil {
		query += " AND subject_id = " + arg(uuid.UUID(*q.SubjectID))
	}
	if !q.From.IsZero() {
		query += " AND timestamp >= " + arg(q.From)
	}
	if !q.To.IsZero() {
		query += " AND timestamp < " + arg(q.To)
	}
	if q.Cursor != "" {
		ts, seq, err := audit.DecodeCursor(q.Cursor)
		if err != nil {
			return audit.Page{}, err
		}
		query += " AND (timestamp, seq) > (" + arg(ts) + ", " + arg(seq) + ")"
	}
	query += " ORDER BY timestamp, seq LIMIT " + arg(limit + 1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return audit.Page{}, fmt.Errorf("query access records: %w", err)
	}
	defer rows.Close()

	var records []audit.AccessRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return audit.Page{}, fmt.Errorf("scan access record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return audit.Page{}, fmt.Errorf("iterate access records: %w", err)
	}

	page := audit.Page{Records: records}
	if len(records) > limit {
		page.Records = records[:limit]
		last := page.Records[limit-1]
		page.NextCursor = audit.EncodeCursor(last.Timestamp, last.Seq)
	}
	return page, nil
}

func scanRecord(rows *sql.Rows) (audit.AccessRecord, error) {
	var (
		record    audit.AccessRecord
		recordID  uuid.UUID
		subjectID uuid.UUID
		ownerID   uuid.UUID
		roles     pq.StringArray
		decision  string
		outcome   string
	)
	err := rows.Scan(
		&recordID,
		&record.Timestamp,
		&record.Partition,
		&record.Seq,
		&subjectID,
		&roles,
		&record.ResourceType,
		&ownerID,
		&record.Field,
		&record.Operation,
		&decision,
		&record.Reason,
		&outcome,
		&record.HighRisk,
		&record.Justification,
		&record.SupervisorApprovalID,
		&record.RequestID,
		&record.IP,
	)
	if err != nil {
		return audit.AccessRecord{}, err
	}
	record.ID = id.RecordID(recordID)
	record.SubjectID = id.SubjectID(subjectID)
	record.ResourceOwner = id.OwnerID(ownerID)
	record.SubjectRoles = roles
	record.Decision = audit.Decision(decision)
	record.Outcome = audit.Outcome(outcome)
	return record, nil
}
