// Package reward computes and executes multi-level payouts up a referrer
// chain. Distribution is two-phase: all ledger bookkeeping commits first,
// then transfers execute, so a failing transfer rail can never re-enter and
// duplicate reward state.
package reward

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"refledger/internal/ledger/models"
	"refledger/internal/reward/metrics"
	id "refledger/pkg/domain"
	dErrors "refledger/pkg/domain-errors"
	audit "refledger/pkg/platform/audit"
	"refledger/pkg/platform/sentinel"
	"refledger/pkg/requestcontext"
)

// Ledger is the slice of the user store the engine needs.
type Ledger interface {
	Get(ctx context.Context, participant id.ParticipantID) (*models.UserRecord, error)
	Put(ctx context.Context, record *models.UserRecord) error
}

// Payments is the transfer slice of the payment gateway.
type Payments interface {
	Transfer(ctx context.Context, to id.ParticipantID, amount uint64) error
}

// Emitter publishes reward audit events.
type Emitter interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Payout is one recorded (recipient, amount, level) triple.
type Payout struct {
	Recipient id.ParticipantID
	Amount    uint64
	Level     int
}

type Engine struct {
	ledger   Ledger
	payments Payments
	events   Emitter
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewEngine(ledger Ledger, payments Payments, events Emitter, m *metrics.Metrics, logger *slog.Logger) *Engine {
	return &Engine{ledger: ledger, payments: payments, events: events, metrics: m, logger: logger}
}

// Distribute walks the referrer chain from origin for up to len(percentages)
// levels and pays each subscribed referrer its level percentage of amount.
//
// A non-subscribed referrer earns nothing but does not break the chain; the
// walk continues past them. Bookkeeping (TotalRewards) is written per level
// as the walk proceeds; transfers run only after the walk completes. A
// transfer failure in the execution phase is logged and counted, never
// rolled back: TotalRewards is a lifetime-earned counter and the divergence
// is observable through the payout-failure metric.
func (e *Engine) Distribute(ctx context.Context, origin id.ParticipantID, amount uint64, percentages []id.BasisPoints) ([]Payout, error) {
	record, err := e.ledger.Get(ctx, origin)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "originating participant is not registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load originating participant")
	}

	// Phase one: walk and commit bookkeeping.
	var payouts []Payout
	current := record
	for level := 1; level <= len(percentages); level++ {
		if !current.HasReferrer() {
			break
		}
		referrer, err := e.ledger.Get(ctx, current.Referrer)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				break
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load referrer")
		}

		if referrer.Subscribed {
			reward := percentages[level-1].ApplyTo(amount)
			if reward > 0 {
				referrer.TotalRewards += reward
				if err := e.ledger.Put(ctx, referrer); err != nil {
					return nil, dErrors.Wrap(err, dErrors.CodeInternal, "credit reward")
				}
				payouts = append(payouts, Payout{Recipient: referrer.ID, Amount: reward, Level: level})
				e.metrics.IncrementCredited(strconv.Itoa(level), reward)
			}
		}
		current = referrer
	}

	// Phase two: execute transfers in level order.
	for _, payout := range payouts {
		if err := e.payments.Transfer(ctx, payout.Recipient, payout.Amount); err != nil {
			e.metrics.IncrementPayoutFailure()
			e.logger.WarnContext(ctx, "reward transfer failed",
				"recipient", payout.Recipient.String(),
				"amount", payout.Amount,
				"level", payout.Level,
				"error", err,
			)
			continue
		}
		e.emit(ctx, origin, payout)
	}
	return payouts, nil
}

func (e *Engine) emit(ctx context.Context, origin id.ParticipantID, payout Payout) {
	if e.events == nil {
		return
	}
	_ = e.events.Emit(ctx, audit.Event{
		Timestamp:    requestcontext.Now(ctx),
		Participant:  payout.Recipient,
		Action:       string(audit.EventRewardPaid),
		Counterparty: origin,
		Amount:       payout.Amount,
		Level:        payout.Level,
		RequestID:    requestcontext.RequestID(ctx),
	})
}
