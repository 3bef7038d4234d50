package emergency_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"sentra/internal/emergency"
	"sentra/internal/emergency/store"
	id "sentra/pkg/domain"
	"sentra/pkg/platform/sentinel"
)

// =============================================================================
// Emergency Service Test Suite
// =============================================================================
// Justification for unit tests: the tracker's read-your-writes visibility and
// per-incident resolution semantics feed directly into policy decisions, so
// they need precise coverage.

type EmergencyServiceSuite struct {
	suite.Suite
	store   *store.InMemoryStore
	service *emergency.Service
	owner   id.OwnerID
}

func TestEmergencyServiceSuite(t *testing.T) {
	suite.Run(t, new(EmergencyServiceSuite))
}

func (s *EmergencyServiceSuite) SetupTest() {
	s.store = store.NewInMemoryStore()

	var err error
	s.service, err = emergency.NewService(s.store)
	s.Require().NoError(err)

	s.owner = id.NewOwnerID()
}

func (s *EmergencyServiceSuite) open(severity int) emergency.Event {
	event, err := s.service.Open(context.Background(), emergency.OpenInput{
		OwnerID:  s.owner,
		Type:     "sos_button",
		Severity: severity,
	})
	s.Require().NoError(err)
	return event
}

// =============================================================================
// Open Tests
// =============================================================================

func (s *EmergencyServiceSuite) TestOpen() {
	ctx := context.Background()

	s.Run("nil owner returns error", func() {
		_, err := s.service.Open(ctx, emergency.OpenInput{Severity: 3})
		s.Error(err)
	})

	s.Run("severity outside 1-5 returns error", func() {
		_, err := s.service.Open(ctx, emergency.OpenInput{OwnerID: s.owner, Severity: 0})
		s.Error(err)
		_, err = s.service.Open(ctx, emergency.OpenInput{OwnerID: s.owner, Severity: 6})
		s.Error(err)
	})

	s.Run("open incident is immediately visible", func() {
		s.open(3)

		open, err := s.service.HasOpenEmergency(ctx, s.owner)
		s.NoError(err)
		s.True(open)
	})

	s.Run("owner without incidents reports none", func() {
		open, err := s.service.HasOpenEmergency(ctx, id.NewOwnerID())
		s.NoError(err)
		s.False(open)
	})

	s.Run("concurrent opens for one owner all land", func() {
		owner := id.NewOwnerID()
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.service.Open(ctx, emergency.OpenInput{
					OwnerID: owner, Type: "sos_button", Severity: 2,
				})
				s.NoError(err)
			}()
		}
		wg.Wait()

		events, err := s.store.ListOpenByOwner(ctx, owner)
		s.NoError(err)
		s.Len(events, 8)
	})
}

// =============================================================================
// Lifecycle Tests
// =============================================================================

func (s *EmergencyServiceSuite) TestLifecycle() {
	ctx := context.Background()

	s.Run("respond moves open to investigating and stays active", func() {
		event := s.open(3)

		updated, err := s.service.Respond(ctx, event.ID)
		s.NoError(err)
		s.Equal(emergency.StatusInvestigating, updated.Status)
		s.NotNil(updated.RespondedAt)

		open, err := s.service.HasOpenEmergency(ctx, s.owner)
		s.NoError(err)
		s.True(open)
	})

	s.Run("respond on non-open incident is invalid state", func() {
		event := s.open(3)
		_, err := s.service.Resolve(ctx, event.ID, emergency.StatusResolved)
		s.Require().NoError(err)

		_, err = s.service.Respond(ctx, event.ID)
		s.ErrorIs(err, sentinel.ErrInvalidState)
	})

	s.Run("resolving one incident leaves others open", func() {
		owner := id.NewOwnerID()
		first, err := s.service.Open(ctx, emergency.OpenInput{OwnerID: owner, Severity: 3})
		s.Require().NoError(err)
		_, err = s.service.Open(ctx, emergency.OpenInput{OwnerID: owner, Severity: 2})
		s.Require().NoError(err)

		_, err = s.service.Resolve(ctx, first.ID, emergency.StatusFalseAlarm)
		s.Require().NoError(err)

		open, err := s.service.HasOpenEmergency(ctx, owner)
		s.NoError(err)
		s.True(open)
	})

	s.Run("resolve requires a terminal outcome", func() {
		event := s.open(3)
		_, err := s.service.Resolve(ctx, event.ID, emergency.StatusInvestigating)
		s.Error(err)
	})

	s.Run("resolve on unknown incident is not found", func() {
		_, err := s.service.Resolve(ctx, id.NewEventID(), emergency.StatusResolved)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("racing resolutions settle exactly one outcome", func() {
		event := s.open(3)

		outcomes := []emergency.Outcome{emergency.StatusResolved, emergency.StatusFalseAlarm}
		errs := make([]error, len(outcomes))
		var wg sync.WaitGroup
		for i := range outcomes {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = s.service.Resolve(ctx, event.ID, outcomes[i])
			}(i)
		}
		wg.Wait()

		var won, lost int
		for _, err := range errs {
			if err == nil {
				won++
			} else {
				s.ErrorIs(err, sentinel.ErrInvalidState)
				lost++
			}
		}
		s.Equal(1, won)
		s.Equal(1, lost)

		got, err := s.store.Get(ctx, event.ID)
		s.Require().NoError(err)
		s.False(got.Status.Open())
		s.NotNil(got.ResolvedAt)
	})
}

// =============================================================================
// Panic Mode Tests
// =============================================================================

func (s *EmergencyServiceSuite) TestPanicMode() {
	ctx := context.Background()

	s.Run("severity 4 incident flags panic mode", func() {
		owner := id.NewOwnerID()
		_, err := s.service.Open(ctx, emergency.OpenInput{OwnerID: owner, Severity: 4})
		s.Require().NoError(err)

		panicMode, err := s.service.PanicMode(ctx, owner)
		s.NoError(err)
		s.True(panicMode)
	})

	s.Run("low severity incidents do not", func() {
		owner := id.NewOwnerID()
		_, err := s.service.Open(ctx, emergency.OpenInput{OwnerID: owner, Severity: 3})
		s.Require().NoError(err)

		panicMode, err := s.service.PanicMode(ctx, owner)
		s.NoError(err)
		s.False(panicMode)
	})

	s.Run("resolving the severe incident clears panic mode", func() {
		owner := id.NewOwnerID()
		event, err := s.service.Open(ctx, emergency.OpenInput{OwnerID: owner, Severity: 5})
		s.Require().NoError(err)
		_, err = s.service.Resolve(ctx, event.ID, emergency.StatusResolved)
		s.Require().NoError(err)

		panicMode, err := s.service.PanicMode(ctx, owner)
		s.NoError(err)
		s.False(panicMode)
	})
}
