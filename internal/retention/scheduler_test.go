package retention_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sentra/internal/retention"
	"sentra/internal/retention/archive"
	"sentra/internal/retention/lease"
	"sentra/internal/retention/store"
)

// =============================================================================
// Retention Scheduler Test Suite
// =============================================================================
// Justification for unit tests: copy-then-delete ordering, legal-hold
// backstops, and lease exclusion are exactly the behaviors that must not
// regress silently; all need fault injection the integration tests cannot do.

const testTable = "access_records"

type SchedulerSuite struct {
	suite.Suite
	source    *store.InMemorySource
	archive   *archive.InMemoryArchive
	actionLog *store.InMemoryActionLog
	lease     *lease.InMemoryLease
	scheduler *retention.Scheduler

	now    time.Time
	policy retention.Policy
}

func TestSchedulerSuite(t *testing.T) {
	suite.Run(t, new(SchedulerSuite))
}

func (s *SchedulerSuite) SetupTest() {
	s.source = store.NewInMemorySource()
	s.archive = archive.NewInMemoryArchive()
	s.actionLog = store.NewInMemoryActionLog()
	s.lease = lease.NewInMemoryLease()
	s.now = time.Date(2026, 6, 1, 3, 0, 0, 0, time.UTC)

	var err error
	s.scheduler, err = retention.NewScheduler(s.source, s.archive, s.actionLog, s.lease,
		retention.WithClock(func() time.Time { return s.now }),
	)
	s.Require().NoError(err)

	s.policy = retention.Policy{
		Table:      testTable,
		Horizon:    30 * 24 * time.Hour,
		LegalBasis: "retention horizon expired",
		BatchSize:  10,
	}
}

func (s *SchedulerSuite) seed(rowID string, ageDays int, protected, held bool) {
	s.source.Seed(testTable, store.AgedRow{
		Row:       retention.Row{ID: rowID, Protected: protected, LegalHold: held},
		CreatedAt: s.now.Add(-time.Duration(ageDays) * 24 * time.Hour),
	})
}

// =============================================================================
// Run Tests
// =============================================================================

func (s *SchedulerSuite) TestRun() {
	ctx := context.Background()

	s.Run("missing table is rejected", func() {
		err := s.scheduler.Run(ctx, retention.Policy{})
		s.Error(err)
	})

	s.Run("expired unprotected rows are hard deleted", func() {
		s.seed("old-1", 60, false, false)
		s.seed("fresh-1", 5, false, false)

		s.Require().NoError(s.scheduler.Run(ctx, s.policy))

		s.Equal([]string{"fresh-1"}, s.source.Remaining(testTable))
		s.Equal(0, s.archive.Count(testTable))
	})

	s.Run("expired protected rows are archived then removed", func() {
		s.seed("prot-1", 60, true, false)

		s.Require().NoError(s.scheduler.Run(ctx, s.policy))

		s.NotContains(s.source.Remaining(testTable), "prot-1")
		has, err := s.archive.Has(ctx, testTable, "prot-1")
		s.NoError(err)
		s.True(has)
	})

	s.Run("run with nothing expired is a no-op", func() {
		s.seed("fresh-2", 1, false, false)
		beforeRows := s.source.Remaining(testTable)
		beforeActions := len(s.actionLog.Actions())

		s.Require().NoError(s.scheduler.Run(ctx, s.policy))

		s.Equal(beforeRows, s.source.Remaining(testTable))
		s.Len(s.actionLog.Actions(), beforeActions)
	})

	s.Run("rerun after a completed pass changes nothing", func() {
		s.seed("old-2", 60, true, false)
		s.Require().NoError(s.scheduler.Run(ctx, s.policy))
		actionsAfterFirst := len(s.actionLog.Actions())

		s.Require().NoError(s.scheduler.Run(ctx, s.policy))

		s.Len(s.actionLog.Actions(), actionsAfterFirst)
	})

	s.Run("scheduler returns to idle", func() {
		s.Require().NoError(s.scheduler.Run(ctx, s.policy))
		s.Equal(retention.StateIdle, s.scheduler.State())
	})
}

// =============================================================================
// Legal Hold Tests
// =============================================================================

func (s *SchedulerSuite) TestLegalHold() {
	ctx := context.Background()

	s.Run("held rows survive every pass", func() {
		s.seed("held-1", 400, true, true)

		s.Require().NoError(s.scheduler.Run(ctx, s.policy))

		s.Contains(s.source.Remaining(testTable), "held-1")
		has, err := s.archive.Has(ctx, testTable, "held-1")
		s.NoError(err)
		s.False(has)
	})
}

// =============================================================================
// Copy-Then-Delete Ordering Tests
// =============================================================================

func (s *SchedulerSuite) TestArchiveFailure() {
	ctx := context.Background()

	s.Run("copy failure aborts before any delete", func() {
		s.seed("prot-2", 60, true, false)
		s.archive.FailCopy = errors.New("archive unavailable")

		err := s.scheduler.Run(ctx, s.policy)
		s.Error(err)

		s.Contains(s.source.Remaining(testTable), "prot-2")
		s.Empty(s.actionLog.Actions())
	})

	s.Run("next pass picks the rows up again", func() {
		s.seed("prot-3", 60, true, false)
		s.archive.FailCopy = errors.New("archive unavailable")
		s.Require().Error(s.scheduler.Run(ctx, s.policy))

		s.archive.FailCopy = nil
		s.Require().NoError(s.scheduler.Run(ctx, s.policy))

		s.NotContains(s.source.Remaining(testTable), "prot-3")
	})
}

// =============================================================================
// Action Log Tests
// =============================================================================

func (s *SchedulerSuite) TestActionLog() {
	ctx := context.Background()

	s.Run("one action per batch per kind with the policy's legal basis", func() {
		s.seed("prot-4", 60, true, false)
		s.seed("plain-4", 60, false, false)

		s.Require().NoError(s.scheduler.Run(ctx, s.policy))

		actions := s.actionLog.Actions()
		s.Require().Len(actions, 2)
		kinds := map[retention.Action]int{}
		for _, a := range actions {
			kinds[a.Action] += a.RecordCount
			s.Equal("retention horizon expired", a.LegalBasis)
			s.Equal(testTable, a.Table)
		}
		s.Equal(1, kinds[retention.ActionArchive])
		s.Equal(1, kinds[retention.ActionDelete])
	})

	s.Run("multiple batches log one action each", func() {
		for i := 0; i < 5; i++ {
			s.seed(string(rune('a'+i)), 60, false, false)
		}
		policy := s.policy
		policy.BatchSize = 2
		before := len(s.actionLog.Actions())

		s.Require().NoError(s.scheduler.Run(ctx, policy))

		// 5 rows at batch size 2 is three delete batches.
		s.Len(s.actionLog.Actions(), before+3)
	})
}

// =============================================================================
// Lease Exclusion Tests
// =============================================================================

func (s *SchedulerSuite) TestLeaseExclusion() {
	ctx := context.Background()

	s.Run("overlapping run is rejected not queued", func() {
		release, ok, err := s.lease.Acquire(ctx, testTable, time.Minute)
		s.Require().NoError(err)
		s.Require().True(ok)
		defer release()

		err = s.scheduler.Run(ctx, s.policy)
		s.ErrorIs(err, retention.ErrAlreadyRunning)
	})

	s.Run("lease is released after a pass", func() {
		s.Require().NoError(s.scheduler.Run(ctx, s.policy))

		release, ok, err := s.lease.Acquire(ctx, testTable, time.Minute)
		s.NoError(err)
		s.True(ok)
		release()
	})

	s.Run("tables lease independently", func() {
		release, ok, err := s.lease.Acquire(ctx, "protected_profiles", time.Minute)
		s.Require().NoError(err)
		s.Require().True(ok)
		defer release()

		s.NoError(s.scheduler.Run(ctx, s.policy))
	})
}
