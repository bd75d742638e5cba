// Package fake provides deterministic in-process rails for development and
// tests. The server wires these when no rail URLs are configured so the
// binary stays runnable end to end.
package fake

import (
	"context"
	"sync"
	"time"

	id "refledger/pkg/domain"
	"refledger/pkg/platform/sentinel"
)

// PaymentRail is an in-memory fungible-asset ledger. Every participant
// starts with InitialBalance and an unlimited allowance toward the service.
type PaymentRail struct {
	mu sync.Mutex

	// InitialBalance seeds accounts on first touch.
	InitialBalance uint64

	balances map[id.ParticipantID]uint64

	// treasury holds fees collected when the beneficiary is nil.
	treasury uint64
}

func NewPaymentRail(initialBalance uint64) *PaymentRail {
	return &PaymentRail{
		InitialBalance: initialBalance,
		balances:       make(map[id.ParticipantID]uint64),
	}
}

func (r *PaymentRail) account(p id.ParticipantID) uint64 {
	if _, ok := r.balances[p]; !ok {
		r.balances[p] = r.InitialBalance
	}
	return r.balances[p]
}

func (r *PaymentRail) TransferFrom(_ context.Context, payer, beneficiary id.ParticipantID, amount uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.account(payer) < amount {
		return sentinel.ErrInvalidState
	}
	r.balances[payer] -= amount
	if beneficiary.IsNil() {
		r.treasury += amount
	} else {
		r.balances[beneficiary] = r.account(beneficiary) + amount
	}
	return nil
}

func (r *PaymentRail) Transfer(_ context.Context, to id.ParticipantID, amount uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.treasury < amount {
		return sentinel.ErrInvalidState
	}
	r.treasury -= amount
	r.balances[to] = r.account(to) + amount
	return nil
}

func (r *PaymentRail) BalanceOf(_ context.Context, participant id.ParticipantID) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.account(participant), nil
}

func (r *PaymentRail) Allowance(_ context.Context, owner id.ParticipantID) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// The fake rail treats the service as pre-approved up to the full
	// balance.
	return r.account(owner), nil
}

// Treasury reports the fees collected by the service account.
func (r *PaymentRail) Treasury() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.treasury
}

// SubscriptionAuthority is an in-memory credential registry with a fixed
// validity period per mint/renew.
type SubscriptionAuthority struct {
	mu sync.Mutex

	// Validity is the extension granted by Mint and Renew.
	Validity time.Duration

	next    uint64
	owners  map[id.CredentialID]id.ParticipantID
	expires map[id.CredentialID]time.Time
}

func NewSubscriptionAuthority(validity time.Duration) *SubscriptionAuthority {
	return &SubscriptionAuthority{
		Validity: validity,
		owners:   make(map[id.CredentialID]id.ParticipantID),
		expires:  make(map[id.CredentialID]time.Time),
	}
}

func (a *SubscriptionAuthority) Mint(_ context.Context, owner id.ParticipantID) (id.CredentialID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next++
	credential := id.CredentialID(a.next)
	a.owners[credential] = owner
	a.expires[credential] = time.Now().Add(a.Validity)
	return credential, nil
}

func (a *SubscriptionAuthority) Renew(_ context.Context, credential id.CredentialID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	expiry, ok := a.expires[credential]
	if !ok {
		return sentinel.ErrNotFound
	}
	base := time.Now()
	if expiry.After(base) {
		base = expiry
	}
	a.expires[credential] = base.Add(a.Validity)
	return nil
}

func (a *SubscriptionAuthority) TimeUntilExpired(_ context.Context, credential id.CredentialID) (time.Duration, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	expiry, ok := a.expires[credential]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	return time.Until(expiry), nil
}

func (a *SubscriptionAuthority) OwnerOf(_ context.Context, credential id.CredentialID) (id.ParticipantID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	owner, ok := a.owners[credential]
	if !ok {
		return id.NilParticipant, sentinel.ErrNotFound
	}
	return owner, nil
}

// Expire force-expires a credential; used by tests driving deactivation.
func (a *SubscriptionAuthority) Expire(credential id.CredentialID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.expires[credential]; ok {
		a.expires[credential] = time.Now().Add(-time.Second)
	}
}
