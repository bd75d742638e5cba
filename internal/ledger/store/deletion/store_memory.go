package deletion

import (
	"context"
	"sync"
	"time"

	id "refledger/pkg/domain"
	"refledger/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[id.ParticipantID]time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{requests: make(map[id.ParticipantID]time.Time)}
}

func (s *InMemoryStore) Request(_ context.Context, participant id.ParticipantID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[participant] = at
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, participant id.ParticipantID) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	at, ok := s.requests[participant]
	if !ok {
		return time.Time{}, sentinel.ErrNotFound
	}
	return at, nil
}

func (s *InMemoryStore) Clear(_ context.Context, participant id.ParticipantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.requests, participant)
	return nil
}
