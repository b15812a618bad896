package bucket

import (
	"context"
	"sync"
	"time"

	"vatfiler/internal/ratelimit/models"
)

// InMemoryStore counts requests in a sliding window per key. It is local to
// one process; RedisStore shares counts between replicas.
type InMemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*slidingWindow
	now     func() time.Time
}

// slidingWindow keeps the request timestamps still inside the window.
type slidingWindow struct {
	timestamps []time.Time
	window     time.Duration
}

type Option func(*InMemoryStore)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *InMemoryStore) {
		s.now = now
	}
}

func NewInMemory(opts ...Option) *InMemoryStore {
	s := &InMemoryStore{
		buckets: make(map[string]*slidingWindow),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow records one request for key if it fits in limit.
func (s *InMemoryStore) Allow(_ context.Context, key string, limit models.Limit) (*models.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sw := s.bucket(key, limit.Window)
	sw.cleanup(now)

	if len(sw.timestamps) < limit.Requests {
		sw.timestamps = append(sw.timestamps, now)
		return &models.Result{
			Allowed:   true,
			Limit:     limit.Requests,
			Remaining: limit.Requests - len(sw.timestamps),
			ResetAt:   sw.timestamps[0].Add(limit.Window),
		}, nil
	}

	// The oldest request leaving the window frees the next slot.
	resetAt := now.Add(limit.Window)
	if len(sw.timestamps) > 0 {
		resetAt = sw.timestamps[0].Add(limit.Window)
	}
	return &models.Result{
		Allowed:    false,
		Limit:      limit.Requests,
		Remaining:  0,
		ResetAt:    resetAt,
		RetryAfter: retryAfter(resetAt.Sub(now)),
	}, nil
}

// PurgeExpired drops buckets with no request left in their window.
func (s *InMemoryStore) PurgeExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	purged := 0
	for key, sw := range s.buckets {
		sw.cleanup(now)
		if len(sw.timestamps) == 0 {
			delete(s.buckets, key)
			purged++
		}
	}
	return purged, nil
}

func (sw *slidingWindow) cleanup(now time.Time) {
	cutoff := now.Add(-sw.window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}

// bucket must be called with s.mu held.
func (s *InMemoryStore) bucket(key string, window time.Duration) *slidingWindow {
	if sw := s.buckets[key]; sw != nil {
		return sw
	}
	sw := &slidingWindow{window: window}
	s.buckets[key] = sw
	return sw
}

// retryAfter rounds d up to whole seconds, at least one.
func retryAfter(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
