// Package retention ages out audit and protected records on a schedule,
// archiving or deleting them under an explicit legal basis while honoring
// legal holds.
package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"sentra/internal/retention/metrics"
)

const (
	defaultBatchSize = 500
	leaseTTL         = 10 * time.Minute
)

// ErrAlreadyRunning means another scheduler instance holds the lease for the
// table. The overlapping run is rejected, not queued.
var ErrAlreadyRunning = errors.New("retention already running for table")

// Scheduler walks one managed table at a time through the cycle
// Idle -> Scanning -> Batching -> Archiving -> LoggingAction -> Idle.
// Copy-then-delete ordering is mandatory: rows leave the live store only
// after the archive confirms them.
type Scheduler struct {
	source  Source
	archive Archive
	actions ActionLog
	lease   Lease
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu    sync.RWMutex
	state State
}

// SchedulerOption configures the Scheduler.
type SchedulerOption func(*Scheduler)

// WithLogger sets a logger for batch outcomes.
func WithLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = logger }
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

// WithMetrics attaches retention pass metrics.
func WithMetrics(m *metrics.Metrics) SchedulerOption {
	return func(s *Scheduler) { s.metrics = m }
}

// NewScheduler builds a Scheduler over its four ports.
func NewScheduler(source Source, archive Archive, actions ActionLog, lease Lease, opts ...SchedulerOption) (*Scheduler, error) {
	if source == nil || archive == nil || actions == nil || lease == nil {
		return nil, fmt.Errorf("source, archive, action log, and lease are all required")
	}
	s := &Scheduler{
		source:  source,
		archive: archive,
		actions: actions,
		lease:   lease,
		now:     time.Now,
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// State reports where the scheduler currently is in its cycle.
func (s *Scheduler) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Scheduler) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Run executes one full retention pass for the policy's table. Any step
// failure aborts the in-flight batch and returns; the rows stay in the live
// store and the next cycle rescans them. Rows already archived are skipped
// by the archive's idempotent copy, so partial batches re-run safely.
func (s *Scheduler) Run(ctx context.Context, policy Policy) error {
	if policy.Table == "" {
		return fmt.Errorf("policy table is required")
	}
	batchSize := policy.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	release, ok, err := s.lease.Acquire(ctx, policy.Table, leaseTTL)
	if err != nil {
		return fmt.Errorf("acquire retention lease for %s: %w", policy.Table, err)
	}
	if !ok {
		s.metrics.IncrementLeaseRejection(policy.Table)
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, policy.Table)
	}
	defer release()
	defer s.setState(StateIdle)

	abort := func(err error) error {
		s.metrics.IncrementAbortedBatch(policy.Table)
		return err
	}

	cutoff := s.now().Add(-policy.Horizon)
	for {
		s.setState(StateScanning)
		rows, err := s.source.ScanExpired(ctx, policy.Table, cutoff, batchSize)
		if err != nil {
			return abort(fmt.Errorf("scan %s: %w", policy.Table, err))
		}
		if len(rows) == 0 {
			return nil
		}

		s.setState(StateBatching)
		archiveIDs, deleteIDs, held := splitBatch(rows)
		if held > 0 && s.logger != nil {
			s.logger.WarnContext(ctx, "legal-hold rows surfaced by scan, skipping",
				"table", policy.Table, "count", held)
		}
		if len(archiveIDs) == 0 && len(deleteIDs) == 0 {
			// Every surfaced row is held; nothing this cycle can do.
			return nil
		}

		s.setState(StateArchiving)
		if len(archiveIDs) > 0 {
			if err := s.archive.Copy(ctx, policy.Table, archiveIDs); err != nil {
				return abort(fmt.Errorf("archive copy for %s: %w", policy.Table, err))
			}
			if err := s.confirmArchived(ctx, policy.Table, archiveIDs); err != nil {
				return abort(err)
			}
			if _, err := s.source.Delete(ctx, policy.Table, archiveIDs); err != nil {
				return abort(fmt.Errorf("delete archived rows from %s: %w", policy.Table, err))
			}
		}

		var deleted int
		if len(deleteIDs) > 0 {
			deleted, err = s.source.Delete(ctx, policy.Table, deleteIDs)
			if err != nil {
				return abort(fmt.Errorf("delete expired rows from %s: %w", policy.Table, err))
			}
		}

		s.setState(StateLoggingAction)
		if len(archiveIDs) > 0 {
			if err := s.logAction(ctx, policy, ActionArchive, len(archiveIDs)); err != nil {
				return abort(err)
			}
		}
		if deleted > 0 {
			if err := s.logAction(ctx, policy, ActionDelete, deleted); err != nil {
				return abort(err)
			}
		}

		s.metrics.AddRows(policy.Table, string(ActionArchive), len(archiveIDs))
		s.metrics.AddRows(policy.Table, string(ActionDelete), deleted)
		s.metrics.AddLegalHoldSkips(policy.Table, held)

		if s.logger != nil {
			s.logger.InfoContext(ctx, "retention batch complete",
				"table", policy.Table,
				"archived", len(archiveIDs),
				"deleted", deleted,
				"skipped_legal_hold", held,
			)
		}

		if len(rows) < batchSize {
			return nil
		}
	}
}

// confirmArchived verifies every row landed in the archive before any delete
// runs. A row the archive cannot confirm aborts the batch.
func (s *Scheduler) confirmArchived(ctx context.Context, table string, ids []string) error {
	for _, rowID := range ids {
		present, err := s.archive.Has(ctx, table, rowID)
		if err != nil {
			return fmt.Errorf("confirm archive of %s/%s: %w", table, rowID, err)
		}
		if !present {
			return fmt.Errorf("row %s/%s missing from archive after copy", table, rowID)
		}
	}
	return nil
}

func (s *Scheduler) logAction(ctx context.Context, policy Policy, action Action, count int) error {
	entry := RetentionAction{
		ID:          uuid.New(),
		Table:       policy.Table,
		Action:      action,
		RecordCount: count,
		LegalBasis:  policy.LegalBasis,
		ExecutedAt:  s.now(),
	}
	if err := s.actions.Append(ctx, entry); err != nil {
		return fmt.Errorf("log retention action for %s: %w", policy.Table, err)
	}
	return nil
}

// splitBatch routes rows to the archive or hard delete and drops legal-hold
// rows the scan should not have surfaced.
func splitBatch(rows []Row) (archiveIDs, deleteIDs []string, held int) {
	for _, row := range rows {
		switch {
		case row.LegalHold:
			held++
		case row.Protected || row.HighPriority:
			archiveIDs = append(archiveIDs, row.ID)
		default:
			deleteIDs = append(deleteIDs, row.ID)
		}
	}
	return archiveIDs, deleteIDs, held
}
