// Package params holds the mutable service configuration: reward
// percentages, fees, durations, depth and size limits, the pause flag, and
// the payout address. Every change is audited.
package params

import (
	"context"
	"fmt"
	"sync"
	"time"

	id "refledger/pkg/domain"
	dErrors "refledger/pkg/domain-errors"
	audit "refledger/pkg/platform/audit"
	"refledger/pkg/requestcontext"
)

const (
	// MaxRewardLevels bounds the referrer-chain walk.
	MaxRewardLevels = 3

	// MaxDeletionCooldown bounds the self-deletion cooldown.
	MaxDeletionCooldown = 365 * 24 * time.Hour

	// MaxBatchQuerySize bounds batch stats requests.
	MaxBatchQuerySize = 100
)

// Parameters is an immutable snapshot of the admin configuration.
type Parameters struct {
	// RewardPercentages holds per-level payout percentages in basis points,
	// level 1 first. Length fixes the depth of the reward walk.
	RewardPercentages []id.BasisPoints

	RegistrationFee      uint64
	SubscriptionFee      uint64
	SubscriptionDuration time.Duration

	// MaxReferralDepth bounds tree enumeration (1..MaxRewardLevels).
	MaxReferralDepth int

	// MaxReferralsPerQuery caps the total nodes one tree query may touch.
	MaxReferralsPerQuery int

	Paused              bool
	PayoutAddress       id.ParticipantID
	SelfDeletionEnabled bool
	DeletionCooldown    time.Duration
}

// Emitter is the audit hook; the store emits a parameter_changed event for
// every successful mutation.
type Emitter interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Store guards Parameters with a mutex. Reads take a snapshot so operations
// see one consistent parameter set for their whole duration.
type Store struct {
	mu     sync.RWMutex
	p      Parameters
	events Emitter
}

// Defaults returns the boot configuration: 5%/3%/1% reward levels, 30-day
// subscriptions, depth 3, and self-deletion disabled until an admin enables
// it.
func Defaults() Parameters {
	return Parameters{
		RewardPercentages:    []id.BasisPoints{500, 300, 100},
		RegistrationFee:      100,
		SubscriptionFee:      100,
		SubscriptionDuration: 30 * 24 * time.Hour,
		MaxReferralDepth:     MaxRewardLevels,
		MaxReferralsPerQuery: 1000,
		DeletionCooldown:     7 * 24 * time.Hour,
	}
}

func NewStore(initial Parameters, events Emitter) *Store {
	return &Store{p: initial, events: events}
}

// Snapshot returns a copy safe to read without holding the lock.
func (s *Store) Snapshot() Parameters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.p
	p.RewardPercentages = append([]id.BasisPoints{}, s.p.RewardPercentages...)
	return p
}

func (s *Store) SetRewardPercentage(ctx context.Context, level int, value uint32) error {
	bp, err := id.ParseRewardBasisPoints(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if level < 1 || level > len(s.p.RewardPercentages) {
		s.mu.Unlock()
		return dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("reward level must be between 1 and %d", len(s.p.RewardPercentages)))
	}
	s.p.RewardPercentages[level-1] = bp
	s.mu.Unlock()
	return s.audit(ctx, fmt.Sprintf("reward_percentage_level_%d", level), uint64(value))
}

func (s *Store) SetRegistrationFee(ctx context.Context, fee uint64) error {
	s.mu.Lock()
	s.p.RegistrationFee = fee
	s.mu.Unlock()
	return s.audit(ctx, "registration_fee", fee)
}

func (s *Store) SetSubscriptionFee(ctx context.Context, fee uint64) error {
	s.mu.Lock()
	s.p.SubscriptionFee = fee
	s.mu.Unlock()
	return s.audit(ctx, "subscription_fee", fee)
}

func (s *Store) SetSubscriptionDuration(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return dErrors.New(dErrors.CodeValidation, "subscription duration must be positive")
	}
	s.mu.Lock()
	s.p.SubscriptionDuration = d
	s.mu.Unlock()
	return s.audit(ctx, "subscription_duration", uint64(d/time.Second))
}

func (s *Store) SetMaxReferralDepth(ctx context.Context, depth int) error {
	if depth < 1 || depth > MaxRewardLevels {
		return dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("referral depth must be between 1 and %d", MaxRewardLevels))
	}
	s.mu.Lock()
	s.p.MaxReferralDepth = depth
	s.mu.Unlock()
	return s.audit(ctx, "max_referral_depth", uint64(depth))
}

func (s *Store) SetMaxReferralsPerQuery(ctx context.Context, max int) error {
	if max < 1 {
		return dErrors.New(dErrors.CodeValidation, "max referrals per query must be positive")
	}
	s.mu.Lock()
	s.p.MaxReferralsPerQuery = max
	s.mu.Unlock()
	return s.audit(ctx, "max_referrals_per_query", uint64(max))
}

func (s *Store) SetPayoutAddress(ctx context.Context, address id.ParticipantID) error {
	if address.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "payout address cannot be nil")
	}
	s.mu.Lock()
	s.p.PayoutAddress = address
	s.mu.Unlock()
	return s.audit(ctx, "payout_address", 0)
}

func (s *Store) SetSelfDeletionEnabled(ctx context.Context, enabled bool) error {
	s.mu.Lock()
	s.p.SelfDeletionEnabled = enabled
	s.mu.Unlock()
	var v uint64
	if enabled {
		v = 1
	}
	return s.audit(ctx, "self_deletion_enabled", v)
}

func (s *Store) SetDeletionCooldown(ctx context.Context, d time.Duration) error {
	if d < 0 || d > MaxDeletionCooldown {
		return dErrors.New(dErrors.CodeValidation, "deletion cooldown must be between 0 and 365 days")
	}
	s.mu.Lock()
	s.p.DeletionCooldown = d
	s.mu.Unlock()
	return s.audit(ctx, "deletion_cooldown", uint64(d/time.Second))
}

func (s *Store) Pause(ctx context.Context) error {
	s.mu.Lock()
	s.p.Paused = true
	s.mu.Unlock()
	return s.emit(ctx, audit.EventPaused, "", 0)
}

func (s *Store) Unpause(ctx context.Context) error {
	s.mu.Lock()
	s.p.Paused = false
	s.mu.Unlock()
	return s.emit(ctx, audit.EventUnpaused, "", 0)
}

func (s *Store) audit(ctx context.Context, parameter string, value uint64) error {
	return s.emit(ctx, audit.EventParameterChanged, parameter, value)
}

func (s *Store) emit(ctx context.Context, action audit.AuditEvent, parameter string, value uint64) error {
	if s.events == nil {
		return nil
	}
	return s.events.Emit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		Action:    string(action),
		Parameter: parameter,
		Amount:    value,
		RequestID: requestcontext.RequestID(ctx),
		ActorID:   requestcontext.Actor(ctx),
	})
}
