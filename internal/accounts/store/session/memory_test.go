package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vatfiler/internal/accounts/models"
	id "vatfiler/pkg/domain"
	"vatfiler/pkg/platform/sentinel"
)

type SessionStoreSuite struct {
	suite.Suite
	ctx   context.Context
	now   time.Time
	store *InMemory
}

func TestSessionStoreSuite(t *testing.T) {
	suite.Run(t, new(SessionStoreSuite))
}

func (s *SessionStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.store = NewInMemory(WithClock(func() time.Time { return s.now }))
}

func (s *SessionStoreSuite) newSession(token string, ttl time.Duration) *models.Session {
	return &models.Session{
		Token:     token,
		AccountID: id.NewAccountID(),
		Email:     "a@example.com",
		Role:      id.AccountTypeAgent,
		CreatedAt: s.now,
		ExpiresAt: s.now.Add(ttl),
	}
}

func (s *SessionStoreSuite) TestLifecycle() {
	sess := s.newSession("tok-1", time.Hour)
	s.Require().NoError(s.store.Create(s.ctx, sess))
	s.ErrorIs(s.store.Create(s.ctx, sess), sentinel.ErrConflict)

	found, err := s.store.Find(s.ctx, "tok-1")
	s.Require().NoError(err)
	s.Equal(sess.AccountID, found.AccountID)

	s.Require().NoError(s.store.Delete(s.ctx, "tok-1"))
	_, err = s.store.Find(s.ctx, "tok-1")
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.Delete(s.ctx, "tok-1"), sentinel.ErrNotFound)
}

func (s *SessionStoreSuite) TestExpiry() {
	s.Require().NoError(s.store.Create(s.ctx, s.newSession("short", time.Minute)))
	s.Require().NoError(s.store.Create(s.ctx, s.newSession("long", time.Hour)))

	s.now = s.now.Add(2 * time.Minute)
	_, err := s.store.Find(s.ctx, "short")
	s.ErrorIs(err, sentinel.ErrExpired)

	purged, err := s.store.PurgeExpired(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, purged)

	_, err = s.store.Find(s.ctx, "short")
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.Find(s.ctx, "long")
	s.NoError(err)
}
