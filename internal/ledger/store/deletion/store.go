package deletion

import (
	"context"
	"time"

	id "refledger/pkg/domain"
)

// Store keeps per-participant deletion-request timestamps used to gate the
// self-deletion cooldown. Absent means no pending request.
type Store interface {
	// Request records (or replaces) the request timestamp.
	Request(ctx context.Context, participant id.ParticipantID, at time.Time) error

	// Get returns the pending request timestamp, or sentinel.ErrNotFound.
	Get(ctx context.Context, participant id.ParticipantID) (time.Time, error)

	// Clear removes any pending request. Clearing an absent request is not
	// an error; deletion cascades call it unconditionally.
	Clear(ctx context.Context, participant id.ParticipantID) error
}
