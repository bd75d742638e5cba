//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	platformpostgres "refledger/internal/platform/postgres"
	id "refledger/pkg/domain"
	audit "refledger/pkg/platform/audit"
	auditpostgres "refledger/pkg/platform/audit/store/postgres"
	"refledger/pkg/testutil/containers"
)

type AuditStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *auditpostgres.Store
}

func TestAuditStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(AuditStoreSuite))
}

func (s *AuditStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.Require().NoError(platformpostgres.Migrate(context.Background(), s.postgres.DB, auditpostgres.Schema))
	s.store = auditpostgres.New(s.postgres.DB)
}

func (s *AuditStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "audit_events")
	s.Require().NoError(err)
}

func (s *AuditStoreSuite) TestAppendAndList() {
	ctx := context.Background()
	participant := id.NewParticipantID()
	counterparty := id.NewParticipantID()

	event := audit.Event{
		Timestamp:    time.Now().UTC().Truncate(time.Microsecond),
		Participant:  participant,
		Action:       string(audit.EventRewardPaid),
		Counterparty: counterparty,
		Amount:       42,
		Level:        2,
		RequestID:    "req-123",
		ActorID:      participant.String(),
	}
	s.Require().NoError(s.store.Append(ctx, event))

	events, err := s.store.ListByParticipant(ctx, participant)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventRewardPaid), events[0].Action)
	s.Equal(counterparty, events[0].Counterparty)
	s.EqualValues(42, events[0].Amount)
	s.Equal(2, events[0].Level)
	s.Equal("req-123", events[0].RequestID)
	s.True(events[0].Timestamp.Equal(event.Timestamp))
}

func (s *AuditStoreSuite) TestListOrdersByTimestamp() {
	ctx := context.Background()
	participant := id.NewParticipantID()
	base := time.Now().UTC().Truncate(time.Microsecond)

	// Insert out of order; the listing sorts by occurrence.
	for _, offset := range []time.Duration{2 * time.Second, 0, time.Second} {
		s.Require().NoError(s.store.Append(ctx, audit.Event{
			Timestamp:   base.Add(offset),
			Participant: participant,
			Action:      string(audit.EventRenewed),
			Reason:      offset.String(),
		}))
	}

	events, err := s.store.ListByParticipant(ctx, participant)
	s.Require().NoError(err)
	s.Require().Len(events, 3)
	s.Equal("0s", events[0].Reason)
	s.Equal("1s", events[1].Reason)
	s.Equal("2s", events[2].Reason)
}

func (s *AuditStoreSuite) TestListIsScopedToParticipant() {
	ctx := context.Background()
	first := id.NewParticipantID()
	second := id.NewParticipantID()

	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Timestamp:   time.Now(),
		Participant: first,
		Action:      string(audit.EventRegistered),
	}))
	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Timestamp:   time.Now(),
		Participant: second,
		Action:      string(audit.EventRegistered),
	}))

	events, err := s.store.ListByParticipant(ctx, first)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(first, events[0].Participant)
}

func (s *AuditStoreSuite) TestAppendWithoutParticipant() {
	ctx := context.Background()

	// Pause and withdrawal events carry no participant.
	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Timestamp: time.Now(),
		Action:    string(audit.EventPaused),
		ActorID:   "admin",
	}))
}
