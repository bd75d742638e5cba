package deletion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	id "refledger/pkg/domain"
	"refledger/pkg/platform/sentinel"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("round-trips a request timestamp", func(t *testing.T) {
		store := NewInMemoryStore()
		participant := id.NewParticipantID()
		at := time.Now().Truncate(time.Second)

		require.NoError(t, store.Request(ctx, participant, at))

		got, err := store.Get(ctx, participant)
		require.NoError(t, err)
		require.True(t, got.Equal(at))
	})

	t.Run("missing request is ErrNotFound", func(t *testing.T) {
		store := NewInMemoryStore()
		_, err := store.Get(ctx, id.NewParticipantID())
		require.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("a repeat request replaces the timestamp", func(t *testing.T) {
		store := NewInMemoryStore()
		participant := id.NewParticipantID()
		first := time.Now().Add(-time.Hour)
		second := time.Now()

		require.NoError(t, store.Request(ctx, participant, first))
		require.NoError(t, store.Request(ctx, participant, second))

		got, err := store.Get(ctx, participant)
		require.NoError(t, err)
		require.True(t, got.Equal(second))
	})

	t.Run("clear removes the request and tolerates absence", func(t *testing.T) {
		store := NewInMemoryStore()
		participant := id.NewParticipantID()

		require.NoError(t, store.Clear(ctx, participant))

		require.NoError(t, store.Request(ctx, participant, time.Now()))
		require.NoError(t, store.Clear(ctx, participant))

		_, err := store.Get(ctx, participant)
		require.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}
