package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for reward distribution.
type Metrics struct {
	// Rewards credited, labelled by referral level.
	RewardsCredited *prometheus.CounterVec

	// Reward amounts credited, labelled by referral level.
	RewardAmount *prometheus.CounterVec

	// Transfers that failed in the execution phase. Bookkeeping has already
	// committed when these fire, so they measure ledger/payout divergence.
	PayoutFailures prometheus.Counter
}

// New registers the collectors on reg. A nil reg leaves them unregistered,
// which lets tests construct fresh instances without colliding on the
// default registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RewardsCredited: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "refledger_rewards_credited_total",
			Help: "Total rewards credited to referrers, by level",
		}, []string{"level"}),

		RewardAmount: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "refledger_reward_amount_total",
			Help: "Total reward value credited, by level",
		}, []string{"level"}),

		PayoutFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "refledger_payout_failures_total",
			Help: "Reward transfers that failed after bookkeeping committed",
		}),
	}
}

// IncrementCredited records one credited reward at a level.
func (m *Metrics) IncrementCredited(level string, amount uint64) {
	if m != nil {
		m.RewardsCredited.WithLabelValues(level).Inc()
		m.RewardAmount.WithLabelValues(level).Add(float64(amount))
	}
}

// IncrementPayoutFailure records a failed execution-phase transfer.
func (m *Metrics) IncrementPayoutFailure() {
	if m != nil {
		m.PayoutFailures.Inc()
	}
}
