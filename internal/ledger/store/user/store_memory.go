package user

import (
	"context"
	"sync"

	"refledger/internal/ledger/models"
	id "refledger/pkg/domain"
	"refledger/pkg/platform/sentinel"
)

// InMemoryUserStore keeps the ledger in process memory. It guards its maps
// with a single RWMutex; operation-level serialization lives in the
// lifecycle service's per-participant locks.
type InMemoryUserStore struct {
	mu    sync.RWMutex
	users map[id.ParticipantID]*models.UserRecord
	edges map[id.ParticipantID][]id.ParticipantID
}

func New() *InMemoryUserStore {
	return &InMemoryUserStore{
		users: make(map[id.ParticipantID]*models.UserRecord),
		edges: make(map[id.ParticipantID][]id.ParticipantID),
	}
}

func (s *InMemoryUserStore) Get(_ context.Context, participant id.ParticipantID) (*models.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.users[participant]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return record.Clone(), nil
}

func (s *InMemoryUserStore) Put(_ context.Context, record *models.UserRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.users[record.ID]; ok && record.TotalRewards < existing.TotalRewards {
		// TotalRewards is a lifetime counter.
		return sentinel.ErrInvalidState
	}
	s.users[record.ID] = record.Clone()
	return nil
}

func (s *InMemoryUserStore) AddEdge(_ context.Context, referrer, referee id.ParticipantID) error {
	if referrer == referee {
		return sentinel.ErrInvalidState
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.users[referrer]
	if !ok {
		return sentinel.ErrNotFound
	}
	for _, existing := range s.edges[referrer] {
		if existing == referee {
			return sentinel.ErrConflict
		}
	}
	s.edges[referrer] = append(s.edges[referrer], referee)
	record.ReferralCount++
	return nil
}

func (s *InMemoryUserStore) EdgesOf(_ context.Context, participant id.ParticipantID) ([]id.ParticipantID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]id.ParticipantID{}, s.edges[participant]...), nil
}

// Delete relinks before erasing: the victim's children are reattached to the
// victim's own referrer, so every descendant of a deleted node stays
// reachable. Deleting a root with children promotes those children to roots.
func (s *InMemoryUserStore) Delete(_ context.Context, participant id.ParticipantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	victim, ok := s.users[participant]
	if !ok {
		return sentinel.ErrNotFound
	}

	grandReferrer := victim.Referrer
	parent, parentExists := s.users[grandReferrer]
	if grandReferrer.IsNil() || !parentExists {
		grandReferrer = id.NilParticipant
		parent = nil
	}

	// Validate the whole child set before touching anything: a mid-loop
	// failure must not leave some children relinked and others not.
	if !grandReferrer.IsNil() {
		for _, child := range s.edges[participant] {
			if _, ok := s.users[child]; !ok {
				continue
			}
			if s.wouldCycle(child, grandReferrer) {
				return sentinel.ErrInvalidState
			}
		}
	}

	if parent != nil {
		s.edges[grandReferrer] = removeEdge(s.edges[grandReferrer], participant)
		if parent.ReferralCount > 0 {
			parent.ReferralCount--
		}
	}

	for _, child := range s.edges[participant] {
		record, ok := s.users[child]
		if !ok {
			continue
		}
		record.Referrer = grandReferrer
		if parent != nil {
			s.edges[grandReferrer] = append(s.edges[grandReferrer], child)
			parent.ReferralCount++
		}
	}

	delete(s.users, participant)
	delete(s.edges, participant)
	return nil
}

// wouldCycle walks candidate's ancestor chain looking for child. The relink
// flow cannot form a cycle today; the guard is here so any future referrer
// mutation path inherits it.
func (s *InMemoryUserStore) wouldCycle(child, candidate id.ParticipantID) bool {
	current := candidate
	for !current.IsNil() {
		if current == child {
			return true
		}
		record, ok := s.users[current]
		if !ok {
			return false
		}
		current = record.Referrer
	}
	return false
}

func removeEdge(edges []id.ParticipantID, target id.ParticipantID) []id.ParticipantID {
	for i, edge := range edges {
		if edge == target {
			return append(edges[:i], edges[i+1:]...)
		}
	}
	return edges
}
