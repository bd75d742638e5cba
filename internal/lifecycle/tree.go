package lifecycle

import (
	"context"
	"fmt"

	id "refledger/pkg/domain"
	dErrors "refledger/pkg/domain-errors"
)

// TreeNode is one descendant in a bounded referral tree enumeration.
type TreeNode struct {
	Participant id.ParticipantID

	// Level is the distance from the queried root (1 = direct referee).
	Level int

	// EstimatedReward is the payout the root would earn from one
	// registration at this level under current parameters — an estimate
	// from the live fee and percentages, not historical payouts.
	EstimatedReward uint64
}

// ReferralTree enumerates the target's descendants breadth-first down to
// depth levels. Exceeding the configured per-query node cap is a defined
// failure, not silent truncation: callers needing more must page through
// Referrals level by level.
func (s *Service) ReferralTree(ctx context.Context, target id.ParticipantID, depth int) ([]TreeNode, error) {
	p := s.params.Snapshot()
	if depth < 1 || depth > p.MaxReferralDepth {
		return nil, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("depth must be between 1 and %d", p.MaxReferralDepth))
	}
	if _, err := s.registered(ctx, target); err != nil {
		return nil, err
	}

	var nodes []TreeNode
	frontier := []id.ParticipantID{target}
	for level := 1; level <= depth && len(frontier) > 0; level++ {
		estimated := uint64(0)
		if level <= len(p.RewardPercentages) {
			estimated = p.RewardPercentages[level-1].ApplyTo(p.RegistrationFee)
		}
		var next []id.ParticipantID
		for _, parent := range frontier {
			edges, err := s.users.EdgesOf(ctx, parent)
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load referral edges")
			}
			for _, child := range edges {
				if len(nodes) >= p.MaxReferralsPerQuery {
					return nil, dErrors.New(dErrors.CodeValidation,
						fmt.Sprintf("tree exceeds the %d node enumeration cap", p.MaxReferralsPerQuery))
				}
				nodes = append(nodes, TreeNode{
					Participant:     child,
					Level:           level,
					EstimatedReward: estimated,
				})
				next = append(next, child)
			}
		}
		frontier = next
	}
	s.metrics.ObserveTreeQuery(len(nodes))
	return nodes, nil
}
