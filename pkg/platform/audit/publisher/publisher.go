package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"placet/pkg/platform/audit"
)

// Publisher stamps and persists audit events. By default Emit writes
// synchronously; WithAsyncBuffer switches to a buffered channel drained by a
// single goroutine, trading durability for latency on hot paths.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger
	now    func() time.Time

	ch     chan audit.Event
	wg     sync.WaitGroup
	closed sync.Once
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous emission with the given buffer size.
// When the buffer is full, events are dropped and counted in the log rather
// than blocking the pipeline.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.ch = make(chan audit.Event, size)
	}
}

// WithLogger sets the logger used for drop and store failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.ch != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.ch {
		if err := p.store.Append(context.Background(), event); err != nil {
			p.logger.Error("audit append failed", "action", event.Action, "error", err.Error())
		}
	}
}

// Emit stamps the event with an ID, timestamp and category, then persists it.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.ch == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case p.ch <- event:
	default:
		p.logger.Warn("audit buffer full, dropping event", "action", event.Action)
	}
	return nil
}

// List returns events recorded for a consent token.
func (p *Publisher) List(ctx context.Context, token string) ([]audit.Event, error) {
	return p.store.ListByToken(ctx, token)
}

// Close drains buffered events. Safe to call more than once.
func (p *Publisher) Close() {
	p.closed.Do(func() {
		if p.ch != nil {
			close(p.ch)
			p.wg.Wait()
		}
	})
}
