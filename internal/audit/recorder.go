// Package audit appends immutable access records, partitioned by time.
// Recording is fail-closed: an append failure must fail the access it would
// have described.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	id "sentra/pkg/domain"
)

const (
	appendTimeout  = 5 * time.Second
	appendAttempts = 3
	retryBackoff   = 100 * time.Millisecond
)

// Notifier is the high-risk side channel, invoked synchronously for records
// whose decision carries the high-risk annotation.
type Notifier interface {
	Notify(ctx context.Context, record AccessRecord) error
}

// Recorder appends access records and fans out high-risk alerts.
type Recorder struct {
	store  Store
	alerts Notifier
	logger *slog.Logger
	now    func() time.Time
}

// RecorderOption configures the Recorder.
type RecorderOption func(*Recorder)

// WithNotifier attaches the high-risk alert channel.
func WithNotifier(n Notifier) RecorderOption {
	return func(r *Recorder) { r.alerts = n }
}

// WithLogger sets a logger for append failures and alert errors.
func WithLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) { r.logger = logger }
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

// NewRecorder builds a Recorder over an append-only store.
func NewRecorder(store Store, opts ...RecorderOption) (*Recorder, error) {
	if store == nil {
		return nil, fmt.Errorf("audit store is required")
	}
	r := &Recorder{store: store, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Record appends one access record, assigning id, timestamp and partition if
// unset. Never fails silently: on persistent append failure the returned
// error must abort the enclosing access.
//
// The append runs detached from the caller's cancellation. A caller that
// abandons an in-flight access after the policy decision still owes the
// trail its record, so the audit obligation outlives the caller's interest.
func (r *Recorder) Record(ctx context.Context, record AccessRecord) (id.RecordID, error) {
	if record.ID.IsNil() {
		record.ID = id.NewRecordID()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = r.now()
	}
	if record.Partition == "" {
		record.Partition = PartitionFor(record.Timestamp)
	}

	appendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), appendTimeout)
	defer cancel()

	var err error
	for attempt := 0; attempt < appendAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-appendCtx.Done():
				return id.RecordID{}, fmt.Errorf("audit append: %w", appendCtx.Err())
			case <-time.After(retryBackoff << (attempt - 1)):
			}
		}
		if err = r.store.Append(appendCtx, record); err == nil {
			break
		}
	}
	if err != nil {
		if r.logger != nil {
			r.logger.ErrorContext(ctx, "CRITICAL: audit append failed",
				"record_id", record.ID,
				"operation", record.Operation,
				"error", err,
			)
		}
		return id.RecordID{}, fmt.Errorf("audit append failed: %w", err)
	}

	if record.HighRisk && r.alerts != nil {
		// Alert delivery must not invalidate an already-persisted record;
		// failures are logged, not propagated.
		if err := r.alerts.Notify(appendCtx, record); err != nil && r.logger != nil {
			r.logger.ErrorContext(ctx, "high-risk alert delivery failed",
				"record_id", record.ID,
				"error", err,
			)
		}
	}

	return record.ID, nil
}

// QueryTrail pages through the access trail.
func (r *Recorder) QueryTrail(ctx context.Context, q TrailQuery) (Page, error) {
	return r.store.Query(ctx, q)
}
