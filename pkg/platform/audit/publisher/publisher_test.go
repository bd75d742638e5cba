package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "refledger/pkg/domain"
	audit "refledger/pkg/platform/audit"
	auditmemory "refledger/pkg/platform/audit/store/memory"
)

func TestSyncEmit(t *testing.T) {
	store := auditmemory.NewInMemoryStore()
	p := NewPublisher(store)
	participant := id.NewParticipantID()

	err := p.Emit(context.Background(), audit.Event{
		Timestamp:   time.Now(),
		Participant: participant,
		Action:      string(audit.EventRegistered),
	})
	require.NoError(t, err)

	events, err := p.List(context.Background(), participant)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventRegistered), events[0].Action)
}

func TestSyncEmitSwallowsStoreFailure(t *testing.T) {
	p := NewPublisher(&failingStore{})

	err := p.Emit(context.Background(), audit.Event{Action: string(audit.EventRenewed)})
	require.NoError(t, err, "audit emission must never fail the caller")
}

func TestAsyncEmitFlushesOnClose(t *testing.T) {
	store := auditmemory.NewInMemoryStore()
	p := NewPublisher(store, WithAsyncBuffer(16))
	participant := id.NewParticipantID()

	for i := 0; i < 5; i++ {
		require.NoError(t, p.Emit(context.Background(), audit.Event{
			Participant: participant,
			Action:      string(audit.EventRewardPaid),
			Level:       i + 1,
		}))
	}
	p.Close()

	events, err := store.ListByParticipant(context.Background(), participant)
	require.NoError(t, err)
	require.Len(t, events, 5)
	assert.Equal(t, 1, events[0].Level)
	assert.Equal(t, 5, events[4].Level)
}

func TestAsyncEmitDropsWhenSaturated(t *testing.T) {
	store := &gatedStore{gate: make(chan struct{})}
	p := NewPublisher(store, WithAsyncBuffer(1))
	participant := id.NewParticipantID()

	// The drain goroutine blocks on the first event, so the buffer holds
	// one more and everything past that is dropped.
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Emit(context.Background(), audit.Event{Participant: participant}))
	}
	close(store.gate)
	p.Close()

	assert.LessOrEqual(t, store.count(), 3)
}

func TestCloseIsIdempotent(t *testing.T) {
	p := NewPublisher(auditmemory.NewInMemoryStore(), WithAsyncBuffer(4))
	p.Close()
	p.Close()
}

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error {
	return errors.New("store unavailable")
}

func (failingStore) ListByParticipant(context.Context, id.ParticipantID) ([]audit.Event, error) {
	return nil, nil
}

// gatedStore blocks Append until the gate opens, holding the drain goroutine
// so tests can saturate the async buffer.
type gatedStore struct {
	gate chan struct{}
	mu   sync.Mutex
	n    int
}

func (s *gatedStore) Append(context.Context, audit.Event) error {
	<-s.gate
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return nil
}

func (s *gatedStore) ListByParticipant(context.Context, id.ParticipantID) ([]audit.Event, error) {
	return nil, nil
}

func (s *gatedStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}
