package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "refledger/pkg/domain-errors"
)

func TestParseParticipantID(t *testing.T) {
	t.Run("round-trips a valid id", func(t *testing.T) {
		original := NewParticipantID()
		parsed, err := ParseParticipantID(original.String())
		require.NoError(t, err)
		assert.Equal(t, original, parsed)
	})

	t.Run("rejects empty input", func(t *testing.T) {
		_, err := ParseParticipantID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects a malformed UUID", func(t *testing.T) {
		_, err := ParseParticipantID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects the nil UUID", func(t *testing.T) {
		_, err := ParseParticipantID("00000000-0000-0000-0000-000000000000")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestParticipantIDNilness(t *testing.T) {
	assert.True(t, NilParticipant.IsNil())
	assert.False(t, NewParticipantID().IsNil())
}

func TestCredentialID(t *testing.T) {
	assert.True(t, CredentialID(0).IsZero())
	assert.False(t, CredentialID(7).IsZero())
}
