package store

import (
	"context"
	"fmt"
	"sync"

	"sentra/internal/fieldcipher"
	"sentra/internal/profile"
	id "sentra/pkg/domain"
	"sentra/pkg/platform/sentinel"
)

// InMemoryStore keeps profiles in process memory. The mutex serializes all
// writes, which subsumes the per-owner serialization the interface requires.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[id.OwnerID]profile.Profile
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{profiles: make(map[id.OwnerID]profile.Profile)}
}

func (s *InMemoryStore) Insert(_ context.Context, p profile.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.profiles[p.OwnerID]; exists {
		return fmt.Errorf("profile for owner %s: %w", p.OwnerID, sentinel.ErrConflict)
	}
	s.profiles[p.OwnerID] = clone(p)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, ownerID id.OwnerID) (profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[ownerID]
	if !ok {
		return profile.Profile{}, fmt.Errorf("profile for owner %s: %w", ownerID, sentinel.ErrNotFound)
	}
	return clone(p), nil
}

func (s *InMemoryStore) Update(_ context.Context, p profile.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.OwnerID]; !ok {
		return fmt.Errorf("profile for owner %s: %w", p.OwnerID, sentinel.ErrNotFound)
	}
	s.profiles[p.OwnerID] = clone(p)
	return nil
}

// clone copies the mutable field map so callers cannot alias store state.
func clone(p profile.Profile) profile.Profile {
	fields := make(map[string]fieldcipher.Envelope, len(p.Fields))
	for k, v := range p.Fields {
		fields[k] = v
	}
	p.Fields = fields
	p.IPAllowlist = append([]string(nil), p.IPAllowlist...)
	return p
}
