// Package ports declares the external collaborator interfaces the lifecycle
// service consumes. Both rails sit outside the trusted boundary: every call
// can fail or lie, and the service never assumes success.
package ports

//go:generate mockgen -source=ports.go -destination=../mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	id "refledger/pkg/domain"
)

// PaymentGateway is the external value-transfer rail. Amounts are integer
// ledger units.
type PaymentGateway interface {
	// TransferFrom moves funds the payer has pre-approved for the service.
	TransferFrom(ctx context.Context, payer, beneficiary id.ParticipantID, amount uint64) error

	// Transfer moves funds out of the service's own balance.
	Transfer(ctx context.Context, to id.ParticipantID, amount uint64) error

	// BalanceOf reports the participant's spendable balance.
	BalanceOf(ctx context.Context, participant id.ParticipantID) (uint64, error)

	// Allowance reports how much the owner has approved the service to
	// spend on their behalf.
	Allowance(ctx context.Context, owner id.ParticipantID) (uint64, error)
}

// SubscriptionAuthority is the external credential registry. One credential
// per participant, minted at registration.
type SubscriptionAuthority interface {
	// Mint issues a new credential to owner. Irreversible once issued.
	Mint(ctx context.Context, owner id.ParticipantID) (id.CredentialID, error)

	// Renew extends the credential by the authority's configured duration.
	Renew(ctx context.Context, credential id.CredentialID) error

	// TimeUntilExpired returns the remaining validity; zero or negative
	// means expired.
	TimeUntilExpired(ctx context.Context, credential id.CredentialID) (time.Duration, error)

	// OwnerOf returns the credential's current owner.
	OwnerOf(ctx context.Context, credential id.CredentialID) (id.ParticipantID, error)
}
