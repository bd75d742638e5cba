package handler

import (
	"strings"

	"refledger/internal/params"
	id "refledger/pkg/domain"
	dErrors "refledger/pkg/domain-errors"
)

// SetRewardPercentageRequest is the body for the per-level percentage update.
// Range validation lives in the parameter store; the handler only decodes.
type SetRewardPercentageRequest struct {
	BasisPoints uint32 `json:"basis_points"`
}

// SetFeeRequest is the body for registration and subscription fee updates.
type SetFeeRequest struct {
	Fee uint64 `json:"fee"`
}

// SetDurationRequest is the body for duration updates, in whole seconds.
type SetDurationRequest struct {
	Seconds int64 `json:"seconds"`
}

// Validate implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *SetDurationRequest) Validate() error {
	if r.Seconds <= 0 {
		return dErrors.New(dErrors.CodeValidation, "seconds must be positive")
	}
	return nil
}

// SetLimitRequest is the body for depth and per-query cap updates.
type SetLimitRequest struct {
	Value int `json:"value"`
}

// SetPayoutAddressRequest is the body for the payout address update.
type SetPayoutAddressRequest struct {
	Address string `json:"address"`

	parsedAddress id.ParticipantID
}

// Validate implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *SetPayoutAddressRequest) Validate() error {
	address, err := id.ParseParticipantID(strings.TrimSpace(r.Address))
	if err != nil {
		return err
	}
	r.parsedAddress = address
	return nil
}

// ParsedAddress returns the address parsed by Validate.
func (r *SetPayoutAddressRequest) ParsedAddress() id.ParticipantID {
	return r.parsedAddress
}

// SetSelfDeletionRequest is the body for the self-deletion toggle.
type SetSelfDeletionRequest struct {
	Enabled bool `json:"enabled"`
}

// EmergencyWithdrawRequest is the body for POST /admin/withdraw.
type EmergencyWithdrawRequest struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`

	parsedTo id.ParticipantID
}

// Validate implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *EmergencyWithdrawRequest) Validate() error {
	if r.Amount == 0 {
		return dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	to, err := id.ParseParticipantID(strings.TrimSpace(r.To))
	if err != nil {
		return err
	}
	r.parsedTo = to
	return nil
}

// ParsedTo returns the destination parsed by Validate.
func (r *EmergencyWithdrawRequest) ParsedTo() id.ParticipantID {
	return r.parsedTo
}

// ParametersResponse is the admin view of the live parameter set.
type ParametersResponse struct {
	RewardPercentages        []uint32 `json:"reward_percentages"`
	RegistrationFee          uint64   `json:"registration_fee"`
	SubscriptionFee          uint64   `json:"subscription_fee"`
	SubscriptionDurationSecs int64    `json:"subscription_duration_seconds"`
	MaxReferralDepth         int      `json:"max_referral_depth"`
	MaxReferralsPerQuery     int      `json:"max_referrals_per_query"`
	Paused                   bool     `json:"paused"`
	PayoutAddress            string   `json:"payout_address,omitempty"`
	SelfDeletionEnabled      bool     `json:"self_deletion_enabled"`
	DeletionCooldownSecs     int64    `json:"deletion_cooldown_seconds"`
}

// FromParameters converts a parameter snapshot to an HTTP response.
func FromParameters(p params.Parameters) *ParametersResponse {
	percentages := make([]uint32, 0, len(p.RewardPercentages))
	for _, bp := range p.RewardPercentages {
		percentages = append(percentages, uint32(bp))
	}
	resp := &ParametersResponse{
		RewardPercentages:        percentages,
		RegistrationFee:          p.RegistrationFee,
		SubscriptionFee:          p.SubscriptionFee,
		SubscriptionDurationSecs: int64(p.SubscriptionDuration.Seconds()),
		MaxReferralDepth:         p.MaxReferralDepth,
		MaxReferralsPerQuery:     p.MaxReferralsPerQuery,
		Paused:                   p.Paused,
		SelfDeletionEnabled:      p.SelfDeletionEnabled,
		DeletionCooldownSecs:     int64(p.DeletionCooldown.Seconds()),
	}
	if !p.PayoutAddress.IsNil() {
		resp.PayoutAddress = p.PayoutAddress.String()
	}
	return resp
}
