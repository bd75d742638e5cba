package handler

import (
	"strings"

	id "refledger/pkg/domain"
	dErrors "refledger/pkg/domain-errors"
	platformstrings "refledger/pkg/platform/strings"
)

// RegisterRequest is the HTTP request body for POST /participants. The
// referrer is optional; an absent or empty value registers without one.
type RegisterRequest struct {
	Referrer string `json:"referrer"`

	// Parsed values (populated by Validate)
	parsedReferrer id.ParticipantID
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeValidation, "request body is required")
	}
	r.Referrer = strings.TrimSpace(r.Referrer)
	if r.Referrer == "" {
		r.parsedReferrer = id.NilParticipant
		return nil
	}
	referrer, err := id.ParseParticipantID(r.Referrer)
	if err != nil {
		return err
	}
	r.parsedReferrer = referrer
	return nil
}

// ParsedReferrer returns the referrer parsed by Validate.
func (r *RegisterRequest) ParsedReferrer() id.ParticipantID {
	return r.parsedReferrer
}

// BatchStatsRequest is the HTTP request body for POST /participants/stats/batch.
type BatchStatsRequest struct {
	Participants []string `json:"participants"`

	parsedParticipants []id.ParticipantID
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *BatchStatsRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeValidation, "request body is required")
	}
	// UUIDs are case-insensitive, so repeats that differ in case are still
	// repeats.
	cleaned := platformstrings.DedupeAndTrimLower(r.Participants)
	r.parsedParticipants = make([]id.ParticipantID, 0, len(cleaned))
	for _, raw := range cleaned {
		participant, err := id.ParseParticipantID(raw)
		if err != nil {
			return err
		}
		r.parsedParticipants = append(r.parsedParticipants, participant)
	}
	return nil
}

// ParsedParticipants returns the batch parsed by Validate.
func (r *BatchStatsRequest) ParsedParticipants() []id.ParticipantID {
	return r.parsedParticipants
}
