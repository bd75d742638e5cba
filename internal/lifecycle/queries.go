package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"refledger/internal/ledger/models"
	"refledger/internal/params"
	id "refledger/pkg/domain"
	dErrors "refledger/pkg/domain-errors"
	"refledger/pkg/platform/sentinel"
)

// Read-only surface. These take snapshot reads and no chain locks; they may
// run concurrently with each other and with mutations.

// Stats returns the participant's ledger record.
func (s *Service) Stats(ctx context.Context, target id.ParticipantID) (*models.UserRecord, error) {
	return s.registered(ctx, target)
}

// BatchStats returns records for up to params.MaxBatchQuerySize
// participants. Unregistered ids are skipped rather than failing the batch.
func (s *Service) BatchStats(ctx context.Context, targets []id.ParticipantID) ([]*models.UserRecord, error) {
	if len(targets) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "batch cannot be empty")
	}
	if len(targets) > params.MaxBatchQuerySize {
		return nil, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("batch size exceeds the maximum of %d", params.MaxBatchQuerySize))
	}
	records := make([]*models.UserRecord, 0, len(targets))
	for _, target := range targets {
		record, err := s.users.Get(ctx, target)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load participant")
		}
		records = append(records, record)
	}
	return records, nil
}

// Referrals returns the target's direct referees in insertion order. A list
// past the configured per-query maximum is a defined failure, matching the
// tree enumeration: callers see the cap, never a silently shortened list.
func (s *Service) Referrals(ctx context.Context, target id.ParticipantID) ([]id.ParticipantID, error) {
	if _, err := s.registered(ctx, target); err != nil {
		return nil, err
	}
	edges, err := s.users.EdgesOf(ctx, target)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load referral edges")
	}
	p := s.params.Snapshot()
	if len(edges) > p.MaxReferralsPerQuery {
		return nil, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("referral list exceeds the %d entry enumeration cap", p.MaxReferralsPerQuery))
	}
	return edges, nil
}

// DeletionStatus reports whether a deletion request is pending and when the
// cooldown allows it to complete.
type DeletionStatus struct {
	Pending     bool
	RequestedAt time.Time
	EligibleAt  time.Time
}

func (s *Service) DeletionStatus(ctx context.Context, target id.ParticipantID) (DeletionStatus, error) {
	if _, err := s.registered(ctx, target); err != nil {
		return DeletionStatus{}, err
	}
	requestedAt, err := s.deletions.Get(ctx, target)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return DeletionStatus{}, nil
		}
		return DeletionStatus{}, dErrors.Wrap(err, dErrors.CodeInternal, "load deletion request")
	}
	p := s.params.Snapshot()
	return DeletionStatus{
		Pending:     true,
		RequestedAt: requestedAt,
		EligibleAt:  requestedAt.Add(p.DeletionCooldown),
	}, nil
}
