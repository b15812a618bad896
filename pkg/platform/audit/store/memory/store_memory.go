package memory

import (
	"context"
	"slices"
	"sync"

	id "vatfiler/pkg/domain"
	audit "vatfiler/pkg/platform/audit"
)

const defaultCapacity = 10000

// InMemoryStore keeps the most recent events in arrival order. When full,
// the oldest events are dropped. Events with no account are only reachable
// through ListRecent.
type InMemoryStore struct {
	mu       sync.RWMutex
	events   []audit.Event
	capacity int
}

type Option func(*InMemoryStore)

// WithCapacity bounds how many events are kept.
func WithCapacity(n int) Option {
	return func(s *InMemoryStore) {
		if n > 0 {
			s.capacity = n
		}
	}
}

func NewInMemoryStore(opts ...Option) *InMemoryStore {
	s := &InMemoryStore{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) >= s.capacity {
		// Drop oldest
		s.events = slices.Delete(s.events, 0, len(s.events)-s.capacity+1)
	}
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByAccount(_ context.Context, accountID id.AccountID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range s.events {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListRecent returns up to limit events, newest first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := max(len(s.events)-limit, 0)
	out := slices.Clone(s.events[start:])
	slices.Reverse(out)
	return out, nil
}

// Clear drops every event, for tests.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}
