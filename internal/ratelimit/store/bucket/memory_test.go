package bucket

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vatfiler/internal/ratelimit/models"
)

var testLimit = models.Limit{Requests: 3, Window: time.Minute}

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	now   time.Time
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.store = NewInMemory(WithClock(func() time.Time { return s.now }))
	s.ctx = context.Background()
}

func (s *InMemoryStoreSuite) TestAllow() {
	s.Run("requests up to the limit are allowed", func() {
		var res *models.Result
		for range testLimit.Requests {
			var err error
			res, err = s.store.Allow(s.ctx, "up-to", testLimit)
			s.Require().NoError(err)
			s.True(res.Allowed)
		}
		s.Equal(0, res.Remaining)
		s.Equal(testLimit.Requests, res.Limit)
	})

	s.Run("the next request is denied with a retry hint", func() {
		for range testLimit.Requests {
			_, err := s.store.Allow(s.ctx, "over", testLimit)
			s.Require().NoError(err)
		}
		s.now = s.now.Add(20 * time.Second)

		res, err := s.store.Allow(s.ctx, "over", testLimit)
		s.Require().NoError(err)
		s.False(res.Allowed)
		s.Equal(40, res.RetryAfter)
	})

	s.Run("keys are independent", func() {
		for range testLimit.Requests {
			_, err := s.store.Allow(s.ctx, "a", testLimit)
			s.Require().NoError(err)
		}
		res, err := s.store.Allow(s.ctx, "b", testLimit)
		s.Require().NoError(err)
		s.True(res.Allowed)
	})
}

func (s *InMemoryStoreSuite) TestWindowSlides() {
	for range testLimit.Requests {
		_, err := s.store.Allow(s.ctx, "slide", testLimit)
		s.Require().NoError(err)
	}
	s.now = s.now.Add(testLimit.Window + time.Second)

	res, err := s.store.Allow(s.ctx, "slide", testLimit)
	s.Require().NoError(err)
	s.True(res.Allowed)
	s.Equal(testLimit.Requests-1, res.Remaining)
}

func (s *InMemoryStoreSuite) TestPurgeDropsIdleBuckets() {
	_, err := s.store.Allow(s.ctx, "idle", testLimit)
	s.Require().NoError(err)
	s.now = s.now.Add(2 * testLimit.Window)
	_, err = s.store.Allow(s.ctx, "busy", testLimit)
	s.Require().NoError(err)

	n, err := s.store.PurgeExpired(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
	s.NotContains(s.store.buckets, "idle")
	s.Contains(s.store.buckets, "busy")
}

func (s *InMemoryStoreSuite) TestConcurrentRequestsNeverExceedLimit() {
	limit := models.Limit{Requests: 25, Window: time.Minute}
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.store.Allow(s.ctx, "race", limit)
			if err == nil && res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	s.Equal(limit.Requests, allowed)
}
