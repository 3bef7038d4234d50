package store

import (
	"context"
	"fmt"
	"sync"

	"sentra/internal/emergency"
	id "sentra/pkg/domain"
	"sentra/pkg/platform/sentinel"
)

// InMemoryStore keeps emergency events in process memory. Writes are
// serialized by the mutex, so an Open followed by HasOpenByOwner from the
// same process always observes the new event.
type InMemoryStore struct {
	mu      sync.RWMutex
	events  map[id.EventID]emergency.Event
	byOwner map[id.OwnerID][]id.EventID
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		events:  make(map[id.EventID]emergency.Event),
		byOwner: make(map[id.OwnerID][]id.EventID),
	}
}

func (s *InMemoryStore) Insert(_ context.Context, event emergency.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.events[event.ID]; exists {
		return fmt.Errorf("event %s: %w", event.ID, sentinel.ErrConflict)
	}
	s.events[event.ID] = event
	s.byOwner[event.OwnerID] = append(s.byOwner[event.OwnerID], event.ID)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, eventID id.EventID) (emergency.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[eventID]
	if !ok {
		return emergency.Event{}, fmt.Errorf("event %s: %w", eventID, sentinel.ErrNotFound)
	}
	return event, nil
}

func (s *InMemoryStore) Update(_ context.Context, event emergency.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[event.ID]; !ok {
		return fmt.Errorf("event %s: %w", event.ID, sentinel.ErrNotFound)
	}
	s.events[event.ID] = event
	return nil
}

func (s *InMemoryStore) HasOpenByOwner(_ context.Context, ownerID id.OwnerID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, eventID := range s.byOwner[ownerID] {
		if s.events[eventID].Status.Open() {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryStore) ListOpenByOwner(_ context.Context, ownerID id.OwnerID) ([]emergency.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var open []emergency.Event
	for _, eventID := range s.byOwner[ownerID] {
		if event := s.events[eventID]; event.Status.Open() {
			open = append(open, event)
		}
	}
	return open, nil
}
