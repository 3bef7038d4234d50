//go:build integration

package lease_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sentra/internal/retention/lease"
	"sentra/pkg/testutil/containers"
)

type RedisLeaseSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	lease *lease.RedisLease
}

func TestRedisLeaseSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisLeaseSuite))
}

func (s *RedisLeaseSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.lease = lease.NewRedisLease(s.redis.Client)
}

func (s *RedisLeaseSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisLeaseSuite) TestMutualExclusion() {
	ctx := context.Background()

	release, ok, err := s.lease.Acquire(ctx, "access_records", time.Minute)
	s.Require().NoError(err)
	s.Require().True(ok)

	_, ok, err = s.lease.Acquire(ctx, "access_records", time.Minute)
	s.Require().NoError(err)
	s.False(ok)

	release()

	release2, ok, err := s.lease.Acquire(ctx, "access_records", time.Minute)
	s.Require().NoError(err)
	s.True(ok)
	release2()
}

func (s *RedisLeaseSuite) TestTablesLeaseIndependently() {
	ctx := context.Background()

	release, ok, err := s.lease.Acquire(ctx, "access_records", time.Minute)
	s.Require().NoError(err)
	s.Require().True(ok)
	defer release()

	release2, ok, err := s.lease.Acquire(ctx, "protected_profiles", time.Minute)
	s.Require().NoError(err)
	s.True(ok)
	release2()
}

func (s *RedisLeaseSuite) TestExpiredLeaseIsReacquirable() {
	ctx := context.Background()

	_, ok, err := s.lease.Acquire(ctx, "access_records", 100*time.Millisecond)
	s.Require().NoError(err)
	s.Require().True(ok)

	time.Sleep(200 * time.Millisecond)

	release, ok, err := s.lease.Acquire(ctx, "access_records", time.Minute)
	s.Require().NoError(err)
	s.True(ok)
	release()
}

func (s *RedisLeaseSuite) TestStaleReleaseCannotDropSuccessor() {
	ctx := context.Background()

	staleRelease, ok, err := s.lease.Acquire(ctx, "access_records", 100*time.Millisecond)
	s.Require().NoError(err)
	s.Require().True(ok)

	time.Sleep(200 * time.Millisecond)

	// Successor takes over after the TTL lapses.
	release, ok, err := s.lease.Acquire(ctx, "access_records", time.Minute)
	s.Require().NoError(err)
	s.Require().True(ok)
	defer release()

	// The stale holder's release must not free the successor's lease.
	staleRelease()

	_, ok, err = s.lease.Acquire(ctx, "access_records", time.Minute)
	s.Require().NoError(err)
	s.False(ok)
}
