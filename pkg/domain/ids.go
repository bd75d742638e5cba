package domain

import (
	"github.com/google/uuid"

	dErrors "refledger/pkg/domain-errors"
)

// ParticipantID identifies a ledger participant. Distinct typed IDs keep
// participant, credential, and request identifiers from being mixed up at
// compile time.
type ParticipantID uuid.UUID

// NilParticipant is the zero participant; operations reject it at trust
// boundaries.
var NilParticipant = ParticipantID(uuid.Nil)

// ParseParticipantID validates and parses a participant identifier.
// IDs must be valid, non-empty, non-nil UUIDs.
func ParseParticipantID(s string) (ParticipantID, error) {
	if s == "" {
		return NilParticipant, dErrors.New(dErrors.CodeInvalidInput, "participant id cannot be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return NilParticipant, dErrors.Wrap(err, dErrors.CodeInvalidInput, "participant id is not a valid UUID")
	}
	if parsed == uuid.Nil {
		return NilParticipant, dErrors.New(dErrors.CodeInvalidInput, "participant id cannot be the nil UUID")
	}
	return ParticipantID(parsed), nil
}

// NewParticipantID returns a fresh random participant id.
func NewParticipantID() ParticipantID {
	return ParticipantID(uuid.New())
}

func (p ParticipantID) String() string {
	return uuid.UUID(p).String()
}

func (p ParticipantID) IsNil() bool {
	return uuid.UUID(p) == uuid.Nil
}

// CredentialID identifies a subscription credential minted by the
// subscription authority. Zero means "no credential".
type CredentialID uint64

func (c CredentialID) IsZero() bool {
	return c == 0
}
