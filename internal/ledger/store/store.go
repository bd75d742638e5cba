package store

import (
	"context"

	"refledger/internal/ledger/models"
	id "refledger/pkg/domain"
)

// UserStore owns the per-participant records and the referrer→referees
// adjacency, including referential integrity of the tree. The lifecycle
// service is the sole writer; read-only surfaces go through snapshot reads.
//
// Implementations return sentinel.ErrNotFound for absent records and
// sentinel.ErrConflict for duplicate edges.
type UserStore interface {
	// Get returns the record for the participant.
	Get(ctx context.Context, participant id.ParticipantID) (*models.UserRecord, error)

	// Put inserts or replaces a record. Writes that would decrease
	// TotalRewards are rejected: the field is a lifetime counter.
	Put(ctx context.Context, record *models.UserRecord) error

	// AddEdge appends referee to the referrer's edge list and increments
	// the referrer's ReferralCount in the same step, keeping count and list
	// consistent.
	AddEdge(ctx context.Context, referrer, referee id.ParticipantID) error

	// EdgesOf returns the direct referees in insertion order.
	EdgesOf(ctx context.Context, participant id.ParticipantID) ([]id.ParticipantID, error)

	// Delete erases the participant after relinking: the victim's children
	// are reattached to the victim's own referrer (or become roots), and the
	// victim disappears from its referrer's edge list.
	Delete(ctx context.Context, participant id.ParticipantID) error
}
