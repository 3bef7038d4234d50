//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sentra/internal/audit"
	auditstore "sentra/internal/audit/store"
	"sentra/internal/fieldcipher"
	"sentra/internal/profile"
	profilestore "sentra/internal/profile/store"
	"sentra/internal/retention"
	"sentra/internal/retention/lease"
	"sentra/internal/retention/store"
	id "sentra/pkg/domain"
	"sentra/pkg/testutil/containers"
)

type RetentionPostgresSuite struct {
	suite.Suite
	postgres  *containers.PostgresContainer
	records   *auditstore.PostgresStore
	profiles  *profilestore.PostgresStore
	scheduler *retention.Scheduler
	now       time.Time
}

func TestRetentionPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RetentionPostgresSuite))
}

func (s *RetentionPostgresSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.records = auditstore.NewPostgresStore(s.postgres.DB)
	s.profiles = profilestore.NewPostgresStore(s.postgres.DB)
	s.now = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	scheduler, err := retention.NewScheduler(
		store.NewPostgresSource(s.postgres.DB),
		store.NewPostgresArchive(s.postgres.DB),
		store.NewPostgresActionLog(s.postgres.DB),
		lease.NewInMemoryLease(),
		retention.WithClock(func() time.Time { return s.now }),
	)
	s.Require().NoError(err)
	s.scheduler = scheduler
}

func (s *RetentionPostgresSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

func (s *RetentionPostgresSuite) appendRecord(at time.Time, owner id.OwnerID, highRisk bool) audit.AccessRecord {
	record := audit.AccessRecord{
		ID:            id.NewRecordID(),
		Timestamp:     at,
		Partition:     audit.PartitionFor(at),
		SubjectID:     id.NewSubjectID(),
		SubjectRoles:  []string{"operator_read_only"},
		ResourceType:  "profile_field",
		ResourceOwner: owner,
		Field:         "address",
		Operation:     "read",
		Decision:      audit.DecisionAllow,
		Reason:        "OPERATOR_READ",
		Outcome:       audit.OutcomeSuccess,
		HighRisk:      highRisk,
	}
	s.Require().NoError(s.records.Append(context.Background(), record))
	return record
}

func (s *RetentionPostgresSuite) insertProfile(legalHold bool, deletedAt *time.Time) profile.Profile {
	p := profile.Profile{
		OwnerID:     id.NewOwnerID(),
		Priority:    3,
		ThreatLevel: profile.ThreatMedium,
		Fields: map[string]fieldcipher.Envelope{
			"address": {
				Ciphertext: []byte{0x01},
				KeyID:      "k1",
				Algorithm:  fieldcipher.AlgorithmAESGCM,
				Nonce:      []byte{0x02},
			},
		},
		LegalHold:      legalHold,
		CreatedAt:      s.now.Add(-3 * 365 * 24 * time.Hour),
		LastReviewedAt: s.now.Add(-3 * 365 * 24 * time.Hour),
		NextReviewAt:   s.now,
		DeletedAt:      deletedAt,
	}
	s.Require().NoError(s.profiles.Insert(context.Background(), p))
	return p
}

func (s *RetentionPostgresSuite) countRows(table string) int {
	var n int
	s.Require().NoError(s.postgres.DB.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n))
	return n
}

func (s *RetentionPostgresSuite) TestAccessRecordPass() {
	ctx := context.Background()
	expired := s.now.Add(-8 * 365 * 24 * time.Hour)

	plain := s.appendRecord(expired, id.NewOwnerID(), false)
	risky := s.appendRecord(expired, id.NewOwnerID(), true)
	recent := s.appendRecord(s.now.Add(-time.Hour), id.NewOwnerID(), false)

	held := s.insertProfile(true, nil)
	s.appendRecord(expired, held.OwnerID, false)

	err := s.scheduler.Run(ctx, retention.Policy{
		Table:      store.TableAccessRecords,
		Horizon:    7 * 365 * 24 * time.Hour,
		LegalBasis: "statutory audit retention expired",
	})
	s.Require().NoError(err)

	s.Run("plain expired record is hard deleted", func() {
		var n int
		s.Require().NoError(s.postgres.DB.QueryRow(
			`SELECT COUNT(*) FROM access_records WHERE id = $1`, plain.ID.String()).Scan(&n))
		s.Zero(n)
		s.Require().NoError(s.postgres.DB.QueryRow(
			`SELECT COUNT(*) FROM archived_access_records WHERE id = $1`, plain.ID.String()).Scan(&n))
		s.Zero(n)
	})

	s.Run("high-risk record is archived before removal", func() {
		var n int
		s.Require().NoError(s.postgres.DB.QueryRow(
			`SELECT COUNT(*) FROM archived_access_records WHERE id = $1`, risky.ID.String()).Scan(&n))
		s.Equal(1, n)
		s.Require().NoError(s.postgres.DB.QueryRow(
			`SELECT COUNT(*) FROM access_records WHERE id = $1`, risky.ID.String()).Scan(&n))
		s.Zero(n)
	})

	s.Run("recent and legal-hold records survive", func() {
		s.Equal(2, s.countRows("access_records"))
		var n int
		s.Require().NoError(s.postgres.DB.QueryRow(
			`SELECT COUNT(*) FROM access_records WHERE id = $1`, recent.ID.String()).Scan(&n))
		s.Equal(1, n)
	})

	s.Run("actions are logged with the policy's legal basis", func() {
		rows, err := s.postgres.DB.Query(
			`SELECT action, record_count, legal_basis FROM retention_actions WHERE target_table = $1`,
			store.TableAccessRecords)
		s.Require().NoError(err)
		defer rows.Close()

		counts := map[string]int{}
		for rows.Next() {
			var action, basis string
			var count int
			s.Require().NoError(rows.Scan(&action, &count, &basis))
			s.Equal("statutory audit retention expired", basis)
			counts[action] += count
		}
		s.Require().NoError(rows.Err())
		s.Equal(1, counts["archive"])
		s.Equal(1, counts["delete"])
	})
}

func (s *RetentionPostgresSuite) TestProfilePass() {
	ctx := context.Background()
	tombstoned := s.now.Add(-3 * 365 * 24 * time.Hour)

	expired := s.insertProfile(false, &tombstoned)
	held := s.insertProfile(true, &tombstoned)
	live := s.insertProfile(false, nil)

	err := s.scheduler.Run(ctx, retention.Policy{
		Table:      store.TableProtectedProfiles,
		Horizon:    2 * 365 * 24 * time.Hour,
		LegalBasis: "account closure retention expired",
	})
	s.Require().NoError(err)

	s.Run("expired tombstone is archived then removed", func() {
		var n int
		s.Require().NoError(s.postgres.DB.QueryRow(
			`SELECT COUNT(*) FROM archived_protected_profiles WHERE owner_id = $1`,
			expired.OwnerID.String()).Scan(&n))
		s.Equal(1, n)
		s.Require().NoError(s.postgres.DB.QueryRow(
			`SELECT COUNT(*) FROM protected_profiles WHERE owner_id = $1`,
			expired.OwnerID.String()).Scan(&n))
		s.Zero(n)
	})

	s.Run("legal hold and live profiles survive", func() {
		for _, owner := range []id.OwnerID{held.OwnerID, live.OwnerID} {
			var n int
			s.Require().NoError(s.postgres.DB.QueryRow(
				`SELECT COUNT(*) FROM protected_profiles WHERE owner_id = $1`, owner.String()).Scan(&n))
			s.Equal(1, n)
		}
	})

	s.Run("rerun finds nothing left to do", func() {
		before := s.countRows("retention_actions")
		s.Require().NoError(s.scheduler.Run(ctx, retention.Policy{
			Table:      store.TableProtectedProfiles,
			Horizon:    2 * 365 * 24 * time.Hour,
			LegalBasis: "account closure retention expired",
		}))
		s.Equal(before, s.countRows("retention_actions"))
	})
}
