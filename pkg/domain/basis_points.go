package domain

import (
	"fmt"

	dErrors "refledger/pkg/domain-errors"
)

// BasisPoints expresses a percentage in integer units of 1/10000.
type BasisPoints uint32

const (
	// BasisPointDenominator converts basis points into a fraction.
	BasisPointDenominator = 10_000

	// MaxRewardBasisPoints caps any single reward level at 10%.
	MaxRewardBasisPoints BasisPoints = 1_000
)

// ParseRewardBasisPoints validates a per-level reward percentage.
func ParseRewardBasisPoints(v uint32) (BasisPoints, error) {
	bp := BasisPoints(v)
	if bp > MaxRewardBasisPoints {
		return 0, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("reward percentage %d exceeds the %d basis point cap", v, MaxRewardBasisPoints))
	}
	return bp, nil
}

// ApplyTo computes floor(amount * bp / 10000). Integer math only so payouts
// are deterministic and never round up. The quotient/remainder split keeps
// the product in range for the full uint64 amount space: with amount =
// q*10000 + r the result is exactly q*bp + floor(r*bp/10000), and neither
// term can overflow for any bp up to the denominator.
func (bp BasisPoints) ApplyTo(amount uint64) uint64 {
	q := amount / BasisPointDenominator
	r := amount % BasisPointDenominator
	return q*uint64(bp) + r*uint64(bp)/BasisPointDenominator
}
