package session

import (
	"context"
	"sync"
	"time"

	"vatfiler/internal/accounts/models"
	"vatfiler/pkg/platform/sentinel"
)

// InMemory keeps sessions keyed by token. Expired sessions read as
// sentinel.ErrExpired until PurgeExpired drops them.
type InMemory struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
	now      func() time.Time
}

type Option func(*InMemory)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *InMemory) {
		s.now = now
	}
}

func NewInMemory(opts ...Option) *InMemory {
	s := &InMemory{
		sessions: make(map[string]models.Session),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemory) Create(_ context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.Token]; ok {
		return sentinel.ErrConflict
	}
	s.sessions[sess.Token] = *sess
	return nil
}

func (s *InMemory) Find(_ context.Context, token string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[token]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if sess.IsExpired(s.now()) {
		return nil, sentinel.ErrExpired
	}
	return &sess, nil
}

func (s *InMemory) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[token]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.sessions, token)
	return nil
}

// PurgeExpired drops every expired session and returns how many went.
func (s *InMemory) PurgeExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	purged := 0
	for token, sess := range s.sessions {
		if sess.IsExpired(now) {
			delete(s.sessions, token)
			purged++
		}
	}
	return purged, nil
}
