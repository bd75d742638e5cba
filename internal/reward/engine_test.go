package reward

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"refledger/internal/ledger/models"
	userstore "refledger/internal/ledger/store/user"
	"refledger/internal/lifecycle/mocks"
	"refledger/internal/reward/metrics"
	id "refledger/pkg/domain"
	dErrors "refledger/pkg/domain-errors"
	audit "refledger/pkg/platform/audit"
	"refledger/pkg/platform/audit/publisher"
	auditmemory "refledger/pkg/platform/audit/store/memory"
)

var defaultPercentages = []id.BasisPoints{500, 300, 100}

type EngineSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	users    *userstore.InMemoryUserStore
	payments *mocks.MockPaymentGateway
	events   *publisher.Publisher
	store    *auditmemory.InMemoryStore
	engine   *Engine
	ctx      context.Context
}

func (s *EngineSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.users = userstore.New()
	s.payments = mocks.NewMockPaymentGateway(s.ctrl)
	s.store = auditmemory.NewInMemoryStore()
	s.events = publisher.NewPublisher(s.store)
	s.engine = NewEngine(s.users, s.payments, s.events, metrics.New(nil), slog.Default())
	s.ctx = context.Background()
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

// register creates a participant under referrer (nil for roots).
func (s *EngineSuite) register(referrer id.ParticipantID, subscribed bool) id.ParticipantID {
	participant := id.NewParticipantID()
	err := s.users.Put(s.ctx, &models.UserRecord{
		ID:         participant,
		Referrer:   referrer,
		Registered: true,
		Subscribed: subscribed,
	})
	s.Require().NoError(err)
	if !referrer.IsNil() {
		s.Require().NoError(s.users.AddEdge(s.ctx, referrer, participant))
	}
	return participant
}

func (s *EngineSuite) rewards(participant id.ParticipantID) uint64 {
	record, err := s.users.Get(s.ctx, participant)
	s.Require().NoError(err)
	return record.TotalRewards
}

// TestThreeLevelDistribution pays 5%, 3%, and 1% of a 100-unit fee up a
// three-deep chain.
func (s *EngineSuite) TestThreeLevelDistribution() {
	great := s.register(id.NilParticipant, true)
	grand := s.register(great, true)
	parent := s.register(grand, true)
	origin := s.register(parent, true)

	s.payments.EXPECT().Transfer(gomock.Any(), parent, uint64(5)).Return(nil)
	s.payments.EXPECT().Transfer(gomock.Any(), grand, uint64(3)).Return(nil)
	s.payments.EXPECT().Transfer(gomock.Any(), great, uint64(1)).Return(nil)

	payouts, err := s.engine.Distribute(s.ctx, origin, 100, defaultPercentages)
	s.Require().NoError(err)
	s.Len(payouts, 3)

	s.Equal(uint64(5), s.rewards(parent))
	s.Equal(uint64(3), s.rewards(grand))
	s.Equal(uint64(1), s.rewards(great))

	events, err := s.store.ListByParticipant(s.ctx, parent)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventRewardPaid), events[0].Action)
	s.Equal(uint64(5), events[0].Amount)
	s.Equal(1, events[0].Level)
}

// TestChainShorterThanLevels stops cleanly at the chain's end.
func (s *EngineSuite) TestChainShorterThanLevels() {
	parent := s.register(id.NilParticipant, true)
	origin := s.register(parent, true)

	s.payments.EXPECT().Transfer(gomock.Any(), parent, uint64(5)).Return(nil)

	payouts, err := s.engine.Distribute(s.ctx, origin, 100, defaultPercentages)
	s.Require().NoError(err)
	s.Len(payouts, 1)
}

// TestSkipsNonSubscribedWithoutBreakingChain verifies an unsubscribed
// referrer earns nothing while the walk continues past them at the next
// level's percentage.
func (s *EngineSuite) TestSkipsNonSubscribedWithoutBreakingChain() {
	grand := s.register(id.NilParticipant, true)
	parent := s.register(grand, false)
	origin := s.register(parent, true)

	// grand sits at level 2, so it earns 3%, not 5%.
	s.payments.EXPECT().Transfer(gomock.Any(), grand, uint64(3)).Return(nil)

	payouts, err := s.engine.Distribute(s.ctx, origin, 100, defaultPercentages)
	s.Require().NoError(err)
	s.Require().Len(payouts, 1)
	s.Equal(grand, payouts[0].Recipient)
	s.Equal(2, payouts[0].Level)

	s.Equal(uint64(0), s.rewards(parent))
	s.Equal(uint64(3), s.rewards(grand))
}

// TestSkipsZeroRewards omits levels whose floor rounds to nothing.
func (s *EngineSuite) TestSkipsZeroRewards() {
	parent := s.register(id.NilParticipant, true)
	origin := s.register(parent, true)

	// 5% of 19 floors to 0; no payout, no transfer.
	payouts, err := s.engine.Distribute(s.ctx, origin, 19, defaultPercentages)
	s.Require().NoError(err)
	s.Empty(payouts)
	s.Equal(uint64(0), s.rewards(parent))
}

// TestTransferFailureKeepsBookkeeping verifies the two phases diverge on a
// rail failure: TotalRewards stays credited, the transfer is just absent.
func (s *EngineSuite) TestTransferFailureKeepsBookkeeping() {
	grand := s.register(id.NilParticipant, true)
	parent := s.register(grand, true)
	origin := s.register(parent, true)

	s.payments.EXPECT().Transfer(gomock.Any(), parent, uint64(5)).Return(errors.New("rail down"))
	s.payments.EXPECT().Transfer(gomock.Any(), grand, uint64(3)).Return(nil)

	payouts, err := s.engine.Distribute(s.ctx, origin, 100, defaultPercentages)
	s.Require().NoError(err)
	s.Len(payouts, 2)

	s.Equal(uint64(5), s.rewards(parent))
	s.Equal(uint64(3), s.rewards(grand))

	// Only the successful transfer is audited.
	events, err := s.store.ListByParticipant(s.ctx, parent)
	s.Require().NoError(err)
	s.Empty(events)
	events, err = s.store.ListByParticipant(s.ctx, grand)
	s.Require().NoError(err)
	s.Len(events, 1)
}

// TestUnknownOrigin rejects a distribution for an unregistered participant.
func (s *EngineSuite) TestUnknownOrigin() {
	_, err := s.engine.Distribute(s.ctx, id.NewParticipantID(), 100, defaultPercentages)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// TestRootOriginPaysNothing is the no-referrer case.
func (s *EngineSuite) TestRootOriginPaysNothing() {
	origin := s.register(id.NilParticipant, true)

	payouts, err := s.engine.Distribute(s.ctx, origin, 100, defaultPercentages)
	s.Require().NoError(err)
	s.Empty(payouts)
}
