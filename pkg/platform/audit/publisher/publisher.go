package publisher

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	id "vatfiler/pkg/domain"
	audit "vatfiler/pkg/platform/audit"
)

// Publisher captures structured audit events. By default Emit writes
// through to the store. With WithAsyncBuffer events are queued and a
// background goroutine appends them; a full queue drops the event.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	queue   chan audit.Event
	closed  bool
	done    chan struct{}
	dropped atomic.Int64
}

type Option func(*Publisher)

// WithAsyncBuffer queues up to size events between Emit and the store.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.queue = make(chan audit.Event, size)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithClock replaces time.Now for the default timestamp, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.queue != nil {
		p.done = make(chan struct{})
		go p.run()
	}
	return p
}

// Emit records event, filling in the category and timestamp when unset.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if event.Category == "" {
		event.Category = event.Action.Category()
	}
	p.logger.InfoContext(ctx, string(event.Action),
		"log_type", "audit",
		"category", event.Category,
		"account_id", event.AccountID,
		"reason", event.Reason,
		"request_id", event.RequestID,
	)
	if p.queue == nil {
		return p.store.Append(ctx, event)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return p.store.Append(ctx, event)
	}
	select {
	case p.queue <- event:
	default:
		p.dropped.Add(1)
		p.logger.WarnContext(ctx, "audit queue full, event dropped", "action", event.Action)
	}
	return nil
}

// List returns the events recorded for accountID.
func (p *Publisher) List(ctx context.Context, accountID id.AccountID) ([]audit.Event, error) {
	return p.store.ListByAccount(ctx, accountID)
}

// Dropped reports how many events a full queue has discarded.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

// Close stops accepting queued events and waits until the queue is drained.
// Later Emits write through.
func (p *Publisher) Close() {
	if p.queue == nil {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()
	<-p.done
}

func (p *Publisher) run() {
	defer close(p.done)
	for event := range p.queue {
		if err := p.store.Append(context.Background(), event); err != nil {
			p.logger.Error("failed to append audit event", "action", event.Action, "error", err)
		}
	}
}
