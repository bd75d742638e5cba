package audit

import (
	"context"
	"time"

	id "refledger/pkg/domain"
)

// Event is emitted from domain logic to capture key ledger actions. It stays
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp   time.Time
	Participant id.ParticipantID
	Action      string

	// Counterparty is the other identity involved, when there is one:
	// the referrer on registration, the reward recipient on payouts, the
	// destination on withdrawals.
	Counterparty id.ParticipantID

	// Amount carries fee or payout values in ledger units.
	Amount uint64

	// Level is the referral level for reward payments (1-based).
	Level int

	// Parameter names the admin parameter for parameter_changed events.
	Parameter string

	// Reason carries failure or deactivation detail.
	Reason string

	// RequestID is the correlation id from the request context.
	RequestID string

	// ActorID tracks who performed the action when different from
	// Participant, e.g. admin-initiated deletions.
	ActorID string
}

// AuditEvent enumerates the actions the ledger emits.
type AuditEvent string

const (
	EventRegistered          AuditEvent = "participant_registered"
	EventRewardPaid          AuditEvent = "reward_paid"
	EventRenewed             AuditEvent = "subscription_renewed"
	EventDeactivated         AuditEvent = "subscription_deactivated"
	EventDeleted             AuditEvent = "participant_deleted"
	EventDeletionRequested   AuditEvent = "deletion_requested"
	EventDeletionCancelled   AuditEvent = "deletion_cancelled"
	EventParameterChanged    AuditEvent = "parameter_changed"
	EventPaused              AuditEvent = "service_paused"
	EventUnpaused            AuditEvent = "service_unpaused"
	EventEmergencyWithdrawal AuditEvent = "emergency_withdrawal"
)

// Store persists audit events. Implementations must be safe for concurrent
// use; Append is called from request paths and from the async worker.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByParticipant(ctx context.Context, participant id.ParticipantID) ([]Event, error)
}
