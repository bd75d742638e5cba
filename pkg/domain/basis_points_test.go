package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRewardBasisPoints(t *testing.T) {
	t.Run("accepts values up to the cap", func(t *testing.T) {
		for _, v := range []uint32{0, 1, 500, 1000} {
			bp, err := ParseRewardBasisPoints(v)
			require.NoError(t, err)
			assert.Equal(t, BasisPoints(v), bp)
		}
	})

	t.Run("rejects values above the cap", func(t *testing.T) {
		_, err := ParseRewardBasisPoints(1001)
		require.Error(t, err)
	})
}

func TestApplyTo(t *testing.T) {
	cases := []struct {
		name   string
		bp     BasisPoints
		amount uint64
		want   uint64
	}{
		{"five percent of 100", 500, 100, 5},
		{"three percent of 100", 300, 100, 3},
		{"one percent of 100", 100, 100, 1},
		{"floors fractional results", 500, 19, 0},
		{"zero percentage pays nothing", 0, 1_000_000, 0},
		{"zero amount pays nothing", 500, 0, 0},
		{"full cap of a large amount", 1000, 123_456, 12_345},
		// Amounts past ~1.8e16 would overflow a naive amount*bp product;
		// the quotient/remainder split must still floor exactly.
		{"five percent near the uint64 ceiling", 500, math.MaxUint64, math.MaxUint64/10_000*500 + math.MaxUint64%10_000*500/10_000},
		{"odd huge amount floors exactly", 300, 18_000_000_000_000_000_001, 540_000_000_000_000_000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.bp.ApplyTo(tc.amount))
		})
	}
}
