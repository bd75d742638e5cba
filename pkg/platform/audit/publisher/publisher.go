package publisher

import (
	"context"
	"log/slog"
	"sync"

	id "refledger/pkg/domain"
	audit "refledger/pkg/platform/audit"
)

// Publisher emits audit events to a store, synchronously by default or
// through a buffered channel when constructed with WithAsyncBuffer. Emission
// is fire-and-forget from the caller's perspective either way: a full async
// buffer drops the event rather than blocking a ledger operation.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	inbox   chan audit.Event
	done    chan struct{}
	closeMu sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to asynchronous mode with the given
// channel capacity.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, size)
	}
}

// WithLogger attaches a logger for drop and append-failure reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default(), done: make(chan struct{})}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		go p.drain()
	}
	return p
}

// Emit records an event. In async mode a saturated buffer drops the event;
// audit emission must never fail a ledger operation.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if p.inbox == nil {
		if err := p.store.Append(ctx, event); err != nil {
			p.logger.Warn("audit append failed", "action", event.Action, "error", err)
		}
		return nil
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("audit buffer full, dropping event", "action", event.Action)
	}
	return nil
}

// List exposes the underlying store's per-participant listing for query
// surfaces and tests.
func (p *Publisher) List(ctx context.Context, participant id.ParticipantID) ([]audit.Event, error) {
	return p.store.ListByParticipant(ctx, participant)
}

// Close stops the async drain loop after flushing buffered events.
func (p *Publisher) Close() {
	p.closeMu.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			<-p.done
		}
	})
}

func (p *Publisher) drain() {
	defer close(p.done)
	for event := range p.inbox {
		if err := p.store.Append(context.Background(), event); err != nil {
			p.logger.Warn("audit append failed", "action", event.Action, "error", err)
		}
	}
}
