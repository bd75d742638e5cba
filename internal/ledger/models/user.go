package models

import (
	id "refledger/pkg/domain"
	dErrors "refledger/pkg/domain-errors"
)

// UserRecord is the per-participant ledger entry.
//
// Invariants:
//   - ReferralCount equals the length of the participant's edge list
//   - Referrer never equals ID
//   - TotalRewards is a lifetime-earned counter and only increases
//   - CredentialID is assigned exactly once, at registration
type UserRecord struct {
	ID id.ParticipantID

	// Referrer is set once at registration and mutated only by deletion
	// relinking. The nil participant means "no referrer" (a root).
	Referrer id.ParticipantID

	// ReferralCount is the number of direct referees.
	ReferralCount uint32

	// TotalRewards accumulates lifetime reward earnings in ledger units. It
	// is not a balance: payouts do not decrement it.
	TotalRewards uint64

	// Registered is true from registration until deletion.
	Registered bool

	// Subscribed caches subscription validity; the subscription authority's
	// expiry query is authoritative.
	Subscribed bool

	// CredentialID is the subscription credential owned by this user; zero
	// means none.
	CredentialID id.CredentialID
}

// Validate checks the record's internal invariants before a store write.
func (u *UserRecord) Validate() error {
	if u.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "user record requires a participant id")
	}
	if !u.Referrer.IsNil() && u.Referrer == u.ID {
		return dErrors.New(dErrors.CodeInvariantViolation, "participant cannot refer itself")
	}
	return nil
}

// HasReferrer reports whether the record points at a referrer.
func (u *UserRecord) HasReferrer() bool {
	return !u.Referrer.IsNil()
}

// Clone returns a deep copy so in-memory stores never leak internal
// pointers to callers.
func (u *UserRecord) Clone() *UserRecord {
	copied := *u
	return &copied
}
