package domainerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	t.Run("matches the outer code", func(t *testing.T) {
		err := New(CodeValidation, "bad input")
		assert.True(t, HasCode(err, CodeValidation))
		assert.False(t, HasCode(err, CodeNotFound))
	})

	t.Run("matches a code deeper in the chain", func(t *testing.T) {
		inner := New(CodeCollaborator, "rail refused")
		outer := Wrap(inner, CodeInternal, "renewal failed")
		assert.True(t, HasCode(outer, CodeInternal))
		assert.True(t, HasCode(outer, CodeCollaborator))
	})

	t.Run("handles plain errors and nil", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("plain"), CodeInternal))
		assert.False(t, HasCode(nil, CodeInternal))
	})
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeConflict, CodeOf(New(CodeConflict, "twice")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestWrapPreservesChain(t *testing.T) {
	sentinel := errors.New("connection reset")
	err := Wrap(sentinel, CodeCollaborator, "payment rail")

	assert.True(t, errors.Is(err, sentinel))
	assert.Contains(t, err.Error(), "payment rail")
	assert.Contains(t, err.Error(), "connection reset")
}
