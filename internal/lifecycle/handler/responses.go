package handler

import (
	"time"

	"refledger/internal/ledger/models"
	"refledger/internal/lifecycle"
)

// RegisterResponse is the HTTP response for POST /participants.
type RegisterResponse struct {
	Participant string `json:"participant"`
}

// StatusResponse acknowledges a state transition with no further payload.
type StatusResponse struct {
	Status string `json:"status"`
}

// RefreshResponse reports the subscription flag after a refresh.
type RefreshResponse struct {
	Subscribed bool `json:"subscribed"`
}

// StatsResponse is one participant's ledger record on the wire.
type StatsResponse struct {
	Participant   string `json:"participant"`
	Referrer      string `json:"referrer,omitempty"`
	ReferralCount uint32 `json:"referral_count"`
	TotalRewards  uint64 `json:"total_rewards"`
	Subscribed    bool   `json:"subscribed"`
	CredentialID  uint64 `json:"credential_id,omitempty"`
}

// FromRecord converts a ledger record to an HTTP response.
func FromRecord(record *models.UserRecord) *StatsResponse {
	resp := &StatsResponse{
		Participant:   record.ID.String(),
		ReferralCount: record.ReferralCount,
		TotalRewards:  record.TotalRewards,
		Subscribed:    record.Subscribed,
		CredentialID:  uint64(record.CredentialID),
	}
	if record.HasReferrer() {
		resp.Referrer = record.Referrer.String()
	}
	return resp
}

// BatchStatsResponse is the HTTP response for POST /participants/stats/batch.
type BatchStatsResponse struct {
	Participants []*StatsResponse `json:"participants"`
}

// ReferralsResponse is the HTTP response for the direct-referee listing.
type ReferralsResponse struct {
	Referrals []string `json:"referrals"`
}

// TreeNodeResponse is one enumerated descendant.
type TreeNodeResponse struct {
	Participant     string `json:"participant"`
	Level           int    `json:"level"`
	EstimatedReward uint64 `json:"estimated_reward"`
}

// TreeResponse is the HTTP response for the referral-tree enumeration.
type TreeResponse struct {
	Nodes []TreeNodeResponse `json:"nodes"`
}

// DeletionStatusResponse reports a pending deletion request, if any.
type DeletionStatusResponse struct {
	Pending     bool       `json:"pending"`
	RequestedAt *time.Time `json:"requested_at,omitempty"`
	EligibleAt  *time.Time `json:"eligible_at,omitempty"`
}

// FromDeletionStatus converts a deletion status to an HTTP response.
func FromDeletionStatus(status lifecycle.DeletionStatus) *DeletionStatusResponse {
	resp := &DeletionStatusResponse{Pending: status.Pending}
	if status.Pending {
		requestedAt, eligibleAt := status.RequestedAt, status.EligibleAt
		resp.RequestedAt = &requestedAt
		resp.EligibleAt = &eligibleAt
	}
	return resp
}
