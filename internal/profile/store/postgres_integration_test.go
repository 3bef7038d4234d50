//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sentra/internal/fieldcipher"
	"sentra/internal/profile"
	"sentra/internal/profile/store"
	id "sentra/pkg/domain"
	"sentra/pkg/platform/sentinel"
	"sentra/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

func (s *PostgresStoreSuite) newProfile() profile.Profile {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return profile.Profile{
		OwnerID:     id.NewOwnerID(),
		Priority:    4,
		ThreatLevel: profile.ThreatHigh,
		Fields: map[string]fieldcipher.Envelope{
			"address": {
				Ciphertext: []byte{0x01, 0x02},
				KeyID:      "k1",
				Algorithm:  fieldcipher.AlgorithmAESGCM,
				Nonce:      []byte{0x03},
			},
		},
		IPAllowlist:    []string{"10.0.0.0/8"},
		CreatedAt:      now,
		LastReviewedAt: now,
		NextReviewAt:   now.Add(90 * 24 * time.Hour),
	}
}

func (s *PostgresStoreSuite) TestInsertAndGet() {
	ctx := context.Background()
	p := s.newProfile()
	s.Require().NoError(s.store.Insert(ctx, p))

	got, err := s.store.Get(ctx, p.OwnerID)
	s.Require().NoError(err)
	s.Equal(p.OwnerID, got.OwnerID)
	s.Equal(p.ThreatLevel, got.ThreatLevel)
	s.Equal(p.Fields["address"].Ciphertext, got.Fields["address"].Ciphertext)
	s.Equal([]string{"10.0.0.0/8"}, got.IPAllowlist)
}

func (s *PostgresStoreSuite) TestDuplicateInsertConflicts() {
	ctx := context.Background()
	p := s.newProfile()
	s.Require().NoError(s.store.Insert(ctx, p))

	err := s.store.Insert(ctx, p)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestGetMissingIsNotFound() {
	_, err := s.store.Get(context.Background(), id.NewOwnerID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUpdatePersistsTombstoneAndHold() {
	ctx := context.Background()
	p := s.newProfile()
	s.Require().NoError(s.store.Insert(ctx, p))

	now := time.Now().UTC().Truncate(time.Microsecond)
	p.LegalHold = true
	p.DeletedAt = &now
	s.Require().NoError(s.store.Update(ctx, p))

	got, err := s.store.Get(ctx, p.OwnerID)
	s.Require().NoError(err)
	s.True(got.LegalHold)
	s.True(got.Deleted())
}

func (s *PostgresStoreSuite) TestUpdateMissingIsNotFound() {
	err := s.store.Update(context.Background(), s.newProfile())
	s.ErrorIs(err, sentinel.ErrNotFound)
}
