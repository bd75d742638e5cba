package lifecycle

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"refledger/internal/ledger/store/deletion"
	userstore "refledger/internal/ledger/store/user"
	"refledger/internal/lifecycle/adapters/fake"
	"refledger/internal/lifecycle/metrics"
	"refledger/internal/params"
	"refledger/internal/reward"
	rewardmetrics "refledger/internal/reward/metrics"
	id "refledger/pkg/domain"
	dErrors "refledger/pkg/domain-errors"
	"refledger/pkg/requestcontext"
)

type QueriesSuite struct {
	suite.Suite
	users   *userstore.InMemoryUserStore
	params  *params.Store
	service *Service
	ctx     context.Context
}

func (s *QueriesSuite) SetupTest() {
	s.users = userstore.New()
	s.params = params.NewStore(params.Defaults(), nil)
	rail := fake.NewPaymentRail(1_000)
	authority := fake.NewSubscriptionAuthority(30 * 24 * time.Hour)
	engine := reward.NewEngine(s.users, rail, nil, rewardmetrics.New(nil), slog.Default())
	s.service = NewService(
		s.users, deletion.NewInMemoryStore(), s.params,
		rail, authority,
		engine, nil,
		metrics.New(nil), slog.Default(),
	)
	s.ctx = context.Background()
}

func TestQueriesSuite(t *testing.T) {
	suite.Run(t, new(QueriesSuite))
}

func (s *QueriesSuite) register(referrer id.ParticipantID) id.ParticipantID {
	participant := id.NewParticipantID()
	s.Require().NoError(s.service.Register(s.ctx, participant, referrer))
	return participant
}

// TestStats reads a single record and maps absence to NotFound.
func (s *QueriesSuite) TestStats() {
	participant := s.register(id.NilParticipant)

	record, err := s.service.Stats(s.ctx, participant)
	s.Require().NoError(err)
	s.Equal(participant, record.ID)

	_, err = s.service.Stats(s.ctx, id.NewParticipantID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// TestBatchStats covers the batch bounds and the skip-unknown behavior.
func (s *QueriesSuite) TestBatchStats() {
	first := s.register(id.NilParticipant)
	second := s.register(id.NilParticipant)

	s.Run("returns known records, skipping unknown ids", func() {
		records, err := s.service.BatchStats(s.ctx, []id.ParticipantID{first, id.NewParticipantID(), second})
		s.Require().NoError(err)
		s.Len(records, 2)
	})

	s.Run("rejects an empty batch", func() {
		_, err := s.service.BatchStats(s.ctx, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("accepts exactly the maximum batch", func() {
		batch := make([]id.ParticipantID, params.MaxBatchQuerySize)
		for i := range batch {
			batch[i] = id.NewParticipantID()
		}
		records, err := s.service.BatchStats(s.ctx, batch)
		s.Require().NoError(err)
		s.Empty(records)
	})

	s.Run("rejects one past the maximum", func() {
		batch := make([]id.ParticipantID, params.MaxBatchQuerySize+1)
		for i := range batch {
			batch[i] = id.NewParticipantID()
		}
		_, err := s.service.BatchStats(s.ctx, batch)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

// TestReferrals lists direct referees in insertion order, capped.
func (s *QueriesSuite) TestReferrals() {
	root := s.register(id.NilParticipant)
	first := s.register(root)
	second := s.register(root)
	third := s.register(root)

	s.Run("insertion order", func() {
		referees, err := s.service.Referrals(s.ctx, root)
		s.Require().NoError(err)
		s.Equal([]id.ParticipantID{first, second, third}, referees)
	})

	s.Run("a list past the cap is a defined failure, not truncation", func() {
		s.Require().NoError(s.params.SetMaxReferralsPerQuery(s.ctx, 2))
		_, err := s.service.Referrals(s.ctx, root)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown target", func() {
		_, err := s.service.Referrals(s.ctx, id.NewParticipantID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// TestReferralTree walks breadth-first with per-level reward estimates.
func (s *QueriesSuite) TestReferralTree() {
	root := s.register(id.NilParticipant)
	child := s.register(root)
	grandchild := s.register(child)

	s.Run("depth one lists direct referees only", func() {
		nodes, err := s.service.ReferralTree(s.ctx, root, 1)
		s.Require().NoError(err)
		s.Require().Len(nodes, 1)
		s.Equal(child, nodes[0].Participant)
		s.Equal(1, nodes[0].Level)
		s.Equal(uint64(5), nodes[0].EstimatedReward)
	})

	s.Run("depth two adds the next level at its estimate", func() {
		nodes, err := s.service.ReferralTree(s.ctx, root, 2)
		s.Require().NoError(err)
		s.Require().Len(nodes, 2)
		s.Equal(grandchild, nodes[1].Participant)
		s.Equal(2, nodes[1].Level)
		s.Equal(uint64(3), nodes[1].EstimatedReward)
	})

	s.Run("depth bounds are enforced", func() {
		_, err := s.service.ReferralTree(s.ctx, root, 0)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		_, err = s.service.ReferralTree(s.ctx, root, 4)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("exceeding the node cap is a defined failure", func() {
		s.Require().NoError(s.params.SetMaxReferralsPerQuery(s.ctx, 1))
		_, err := s.service.ReferralTree(s.ctx, root, 2)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

// TestDeletionStatus reports the pending request and eligibility time.
func (s *QueriesSuite) TestDeletionStatus() {
	s.Require().NoError(s.params.SetSelfDeletionEnabled(s.ctx, true))
	participant := s.register(id.NilParticipant)

	s.Run("no pending request", func() {
		status, err := s.service.DeletionStatus(s.ctx, participant)
		s.Require().NoError(err)
		s.False(status.Pending)
	})

	s.Run("pending request carries the cooldown window", func() {
		now := time.Now()
		ctx := requestcontext.WithTime(s.ctx, now)
		s.Require().NoError(s.service.RequestDeletion(ctx, participant))

		status, err := s.service.DeletionStatus(s.ctx, participant)
		s.Require().NoError(err)
		s.True(status.Pending)
		s.True(status.RequestedAt.Equal(now))
		s.True(status.EligibleAt.Equal(now.Add(7 * 24 * time.Hour)))
	})
}
