package flow

import (
	"context"
	"sync"
	"time"

	"vatfiler/internal/registration/models"
	id "vatfiler/pkg/domain"
	"vatfiler/pkg/platform/sentinel"
)

type entry struct {
	state     models.State
	expiresAt time.Time
}

// InMemoryStore keeps flows in a map with a sliding TTL. Expired entries
// read as missing and are dropped by PurgeExpired.
type InMemoryStore struct {
	mu    sync.RWMutex
	flows map[id.FlowID]entry
	ttl   time.Duration
	now   func() time.Time
}

// Option configures an InMemoryStore.
type Option func(*InMemoryStore)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *InMemoryStore) {
		s.now = now
	}
}

// NewInMemory returns an empty store whose entries live for ttl after
// their last write.
func NewInMemory(ttl time.Duration, opts ...Option) *InMemoryStore {
	s := &InMemoryStore{
		flows: make(map[id.FlowID]entry),
		ttl:   ttl,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Create(_ context.Context, flowID id.FlowID, st models.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if e, ok := s.flows[flowID]; ok && now.Before(e.expiresAt) {
		return sentinel.ErrConflict
	}
	s.flows[flowID] = entry{state: st, expiresAt: now.Add(s.ttl)}
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, flowID id.FlowID) (models.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.flows[flowID]
	if !ok || !s.now().Before(e.expiresAt) {
		return models.State{}, sentinel.ErrNotFound
	}
	return e.state, nil
}

// Update applies apply to an existing, unexpired flow under the store lock
// and slides its TTL. Nothing is written when apply fails.
func (s *InMemoryStore) Update(_ context.Context, flowID id.FlowID, apply func(models.State) (models.State, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	e, ok := s.flows[flowID]
	if !ok || !now.Before(e.expiresAt) {
		return sentinel.ErrNotFound
	}
	next, err := apply(e.state)
	if err != nil {
		return err
	}
	s.flows[flowID] = entry{state: next, expiresAt: now.Add(s.ttl)}
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, flowID id.FlowID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.flows[flowID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.flows, flowID)
	return nil
}

// PurgeExpired drops every expired flow and returns how many went.
func (s *InMemoryStore) PurgeExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	purged := 0
	for k, e := range s.flows {
		if !now.Before(e.expiresAt) {
			delete(s.flows, k)
			purged++
		}
	}
	return purged, nil
}

// Len reports the number of stored flows, expired ones included.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.flows)
}
