//go:build integration

package user_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"refledger/internal/ledger/models"
	"refledger/internal/ledger/store/user"
	"refledger/internal/platform/postgres"
	id "refledger/pkg/domain"
	"refledger/pkg/platform/sentinel"
	"refledger/pkg/testutil/containers"
)

type PostgresUserStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *user.PostgresUserStore
}

func TestPostgresUserStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresUserStoreSuite))
}

func (s *PostgresUserStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.Require().NoError(postgres.Migrate(context.Background(), s.postgres.DB, user.Schema))
	s.store = user.NewPostgres(s.postgres.DB)
}

func (s *PostgresUserStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "referral_edges", "ledger_users")
	s.Require().NoError(err)
}

func (s *PostgresUserStoreSuite) put(participant, referrer id.ParticipantID) {
	s.T().Helper()
	s.Require().NoError(s.store.Put(context.Background(), &models.UserRecord{
		ID:         participant,
		Referrer:   referrer,
		Registered: true,
		Subscribed: true,
	}))
}

func (s *PostgresUserStoreSuite) link(referrer, referee id.ParticipantID) {
	s.T().Helper()
	s.Require().NoError(s.store.AddEdge(context.Background(), referrer, referee))
}

func (s *PostgresUserStoreSuite) TestPutAndGet() {
	ctx := context.Background()
	participant := id.NewParticipantID()

	s.Run("round trip", func() {
		record := &models.UserRecord{
			ID:           participant,
			Registered:   true,
			Subscribed:   true,
			TotalRewards: 7,
			CredentialID: id.CredentialID(3),
		}
		s.Require().NoError(s.store.Put(ctx, record))

		got, err := s.store.Get(ctx, participant)
		s.Require().NoError(err)
		s.Equal(record, got)
	})

	s.Run("unknown participant", func() {
		_, err := s.store.Get(ctx, id.NewParticipantID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("referrer survives the round trip", func() {
		referrer := id.NewParticipantID()
		s.put(referrer, id.NilParticipant)
		referee := id.NewParticipantID()
		s.put(referee, referrer)

		got, err := s.store.Get(ctx, referee)
		s.Require().NoError(err)
		s.Equal(referrer, got.Referrer)
	})
}

func (s *PostgresUserStoreSuite) TestRewardMonotonicity() {
	ctx := context.Background()
	participant := id.NewParticipantID()
	s.Require().NoError(s.store.Put(ctx, &models.UserRecord{
		ID:           participant,
		Registered:   true,
		TotalRewards: 50,
	}))

	s.Run("increase is accepted", func() {
		s.Require().NoError(s.store.Put(ctx, &models.UserRecord{
			ID:           participant,
			Registered:   true,
			TotalRewards: 80,
		}))
	})

	s.Run("decrease is rejected and leaves the row intact", func() {
		err := s.store.Put(ctx, &models.UserRecord{
			ID:           participant,
			Registered:   true,
			TotalRewards: 10,
		})
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)

		got, err := s.store.Get(ctx, participant)
		s.Require().NoError(err)
		s.EqualValues(80, got.TotalRewards)
	})
}

func (s *PostgresUserStoreSuite) TestEdges() {
	ctx := context.Background()
	referrer := id.NewParticipantID()
	s.put(referrer, id.NilParticipant)

	first := id.NewParticipantID()
	second := id.NewParticipantID()
	s.put(first, referrer)
	s.put(second, referrer)
	s.link(referrer, first)
	s.link(referrer, second)

	s.Run("insertion order is preserved", func() {
		edges, err := s.store.EdgesOf(ctx, referrer)
		s.Require().NoError(err)
		s.Equal([]id.ParticipantID{first, second}, edges)

		got, err := s.store.Get(ctx, referrer)
		s.Require().NoError(err)
		s.EqualValues(2, got.ReferralCount)
	})

	s.Run("duplicate edge conflicts", func() {
		err := s.store.AddEdge(ctx, referrer, first)
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("unknown referrer", func() {
		err := s.store.AddEdge(ctx, id.NewParticipantID(), id.NewParticipantID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("self edge is rejected", func() {
		err := s.store.AddEdge(ctx, referrer, referrer)
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)
	})
}

func (s *PostgresUserStoreSuite) TestDeleteRelinksChain() {
	ctx := context.Background()
	a := id.NewParticipantID()
	b := id.NewParticipantID()
	c := id.NewParticipantID()
	s.put(a, id.NilParticipant)
	s.put(b, a)
	s.put(c, b)
	s.link(a, b)
	s.link(b, c)

	s.Require().NoError(s.store.Delete(ctx, b))

	_, err := s.store.Get(ctx, b)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	got, err := s.store.Get(ctx, c)
	s.Require().NoError(err)
	s.Equal(a, got.Referrer, "orphan reattaches to the grandparent")

	edges, err := s.store.EdgesOf(ctx, a)
	s.Require().NoError(err)
	s.Equal([]id.ParticipantID{c}, edges)

	parent, err := s.store.Get(ctx, a)
	s.Require().NoError(err)
	s.EqualValues(1, parent.ReferralCount)
}

func (s *PostgresUserStoreSuite) TestDeleteRootPromotesChildren() {
	ctx := context.Background()
	root := id.NewParticipantID()
	child := id.NewParticipantID()
	s.put(root, id.NilParticipant)
	s.put(child, root)
	s.link(root, child)

	s.Require().NoError(s.store.Delete(ctx, root))

	got, err := s.store.Get(ctx, child)
	s.Require().NoError(err)
	s.False(got.HasReferrer(), "children of a deleted root become roots")
}

func (s *PostgresUserStoreSuite) TestDeleteUnknown() {
	err := s.store.Delete(context.Background(), id.NewParticipantID())
	s.Require().True(errors.Is(err, sentinel.ErrNotFound))
}
