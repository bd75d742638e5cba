// Package lifecycle orchestrates registration, renewal, subscription
// refresh, and deletion as atomic-per-call operations. It is the sole writer
// of the ledger store; every mutation funnels through here under the
// per-chain locks in tx.go.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"refledger/internal/ledger/models"
	"refledger/internal/ledger/store"
	"refledger/internal/ledger/store/deletion"
	"refledger/internal/lifecycle/metrics"
	"refledger/internal/lifecycle/ports"
	"refledger/internal/params"
	"refledger/internal/reward"
	id "refledger/pkg/domain"
	dErrors "refledger/pkg/domain-errors"
	audit "refledger/pkg/platform/audit"
	"refledger/pkg/platform/sentinel"
	"refledger/pkg/requestcontext"
)

// RewardDistributor is the engine slice the controller invokes after a fee
// payment succeeds.
type RewardDistributor interface {
	Distribute(ctx context.Context, origin id.ParticipantID, amount uint64, percentages []id.BasisPoints) ([]reward.Payout, error)
}

// Emitter publishes lifecycle audit events.
type Emitter interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	users     store.UserStore
	deletions deletion.Store
	params    *params.Store
	payments  ports.PaymentGateway
	authority ports.SubscriptionAuthority
	rewards   RewardDistributor
	events    Emitter
	metrics   *metrics.Metrics
	logger    *slog.Logger
	locks     *chainLocks
	tracer    trace.Tracer
}

func NewService(
	users store.UserStore,
	deletions deletion.Store,
	parameters *params.Store,
	payments ports.PaymentGateway,
	authority ports.SubscriptionAuthority,
	rewards RewardDistributor,
	events Emitter,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		users:     users,
		deletions: deletions,
		params:    parameters,
		payments:  payments,
		authority: authority,
		rewards:   rewards,
		events:    events,
		metrics:   m,
		logger:    logger,
		locks:     newChainLocks(),
		tracer:    otel.Tracer("refledger/lifecycle"),
	}
}

// Register enrols a new participant, optionally under a referrer. Order of
// effects: validation and payment preflight, credential mint, ledger write,
// edge write, fee transfer, then reward distribution. The preflight turns a
// transfer failure after the ledger write into a rare race, and that race is
// still rolled back before the call reports failure.
func (s *Service) Register(ctx context.Context, participant, referrer id.ParticipantID) (err error) {
	ctx, done := s.instrument(ctx, "register")
	defer func() { done(err) }()

	p, err := s.gates()
	if err != nil {
		return err
	}
	if participant.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "participant id is required")
	}
	if participant == referrer {
		return dErrors.New(dErrors.CodeValidation, "participant cannot refer itself")
	}

	// Distribution will credit up to len(RewardPercentages) ancestors, so
	// the lock must cover the referrer's chain, not just the pair. The
	// participant has no record yet; its chain is referrer's chain plus one.
	keys := append(s.chainKeys(ctx, referrer, len(p.RewardPercentages)-1), participant)
	unlock := s.locks.Lock(keys...)
	defer unlock()

	if _, err := s.users.Get(ctx, participant); err == nil {
		return dErrors.New(dErrors.CodeConflict, "participant is already registered")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "check registration")
	}

	attachReferrer := id.NilParticipant
	if !referrer.IsNil() {
		record, err := s.users.Get(ctx, referrer)
		switch {
		case err == nil && record.Registered:
			attachReferrer = referrer
		case err != nil && !errors.Is(err, sentinel.ErrNotFound):
			return dErrors.Wrap(err, dErrors.CodeInternal, "check referrer")
		}
	}

	if err := s.preflightPayment(ctx, participant, p.RegistrationFee); err != nil {
		return err
	}

	// The mint is irreversible once issued, so it runs before any ledger
	// write: a mint failure aborts with the ledger untouched.
	credential, err := s.authority.Mint(ctx, participant)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeCollaborator, "credential mint failed")
	}

	record := &models.UserRecord{
		ID:           participant,
		Referrer:     attachReferrer,
		Registered:   true,
		Subscribed:   true,
		CredentialID: credential,
	}
	if err := s.users.Put(ctx, record); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "write participant record")
	}
	if !attachReferrer.IsNil() {
		if err := s.users.AddEdge(ctx, attachReferrer, participant); err != nil {
			_ = s.users.Delete(ctx, participant)
			return dErrors.Wrap(err, dErrors.CodeInternal, "append referral edge")
		}
	}

	if p.RegistrationFee > 0 {
		if err := s.payments.TransferFrom(ctx, participant, p.PayoutAddress, p.RegistrationFee); err != nil {
			// Post-preflight failure: concurrent balance change. The new
			// record has no children yet, so Delete undoes the edge and the
			// record in one step.
			_ = s.users.Delete(ctx, participant)
			return dErrors.Wrap(err, dErrors.CodeCollaborator, "registration fee transfer failed")
		}
	}

	s.emit(ctx, audit.Event{
		Participant:  participant,
		Action:       string(audit.EventRegistered),
		Counterparty: attachReferrer,
		Amount:       p.RegistrationFee,
	})

	if !attachReferrer.IsNil() {
		s.refreshChain(ctx, participant, len(p.RewardPercentages))
		if _, err := s.rewards.Distribute(ctx, participant, p.RegistrationFee, p.RewardPercentages); err != nil {
			// Registration has fully succeeded; distribution problems are
			// logged, not surfaced.
			s.logger.WarnContext(ctx, "reward distribution failed",
				"participant", participant.String(), "error", err)
		}
	}
	return nil
}

// Renew extends the target's subscription. Anyone may renew on behalf of any
// registered participant; the target pays.
//
// Protocol: preflight, optimistically set the subscribed flag, transfer the
// fee (rolling the flag back on failure), renew the credential at the
// authority (refunding the fee on failure), then distribute rewards on the
// renewal fee.
func (s *Service) Renew(ctx context.Context, target id.ParticipantID) (err error) {
	ctx, done := s.instrument(ctx, "renew")
	defer func() { done(err) }()

	p, err := s.gates()
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(s.chainKeys(ctx, target, len(p.RewardPercentages))...)
	defer unlock()

	record, err := s.registered(ctx, target)
	if err != nil {
		return err
	}
	if record.CredentialID.IsZero() {
		return dErrors.New(dErrors.CodeInvariantViolation, "participant owns no subscription credential")
	}
	if err := s.preflightPayment(ctx, target, p.SubscriptionFee); err != nil {
		return err
	}

	wasSubscribed := record.Subscribed
	record.Subscribed = true
	if err := s.users.Put(ctx, record); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "set subscription flag")
	}
	revertFlag := func() {
		record.Subscribed = wasSubscribed
		if putErr := s.users.Put(ctx, record); putErr != nil {
			s.logger.ErrorContext(ctx, "subscription flag rollback failed",
				"participant", target.String(), "error", putErr)
		}
	}

	if p.SubscriptionFee > 0 {
		if err := s.payments.TransferFrom(ctx, target, p.PayoutAddress, p.SubscriptionFee); err != nil {
			revertFlag()
			return dErrors.Wrap(err, dErrors.CodeCollaborator, "subscription fee transfer failed")
		}
	}

	if err := s.authority.Renew(ctx, record.CredentialID); err != nil {
		// The fee has already moved; compensate with a refund so the
		// participant is not charged for a renewal that never happened.
		if p.SubscriptionFee > 0 {
			if refundErr := s.payments.Transfer(ctx, target, p.SubscriptionFee); refundErr != nil {
				s.logger.ErrorContext(ctx, "renewal refund failed",
					"participant", target.String(), "error", refundErr)
			}
		}
		revertFlag()
		return dErrors.Wrap(err, dErrors.CodeCollaborator, "credential renewal failed")
	}

	s.emit(ctx, audit.Event{
		Participant: target,
		Action:      string(audit.EventRenewed),
		Amount:      p.SubscriptionFee,
	})

	s.refreshChain(ctx, target, len(p.RewardPercentages))
	if _, err := s.rewards.Distribute(ctx, target, p.SubscriptionFee, p.RewardPercentages); err != nil {
		s.logger.WarnContext(ctx, "reward distribution failed",
			"participant", target.String(), "error", err)
	}
	return nil
}

// RefreshSubscription reconciles the cached subscribed flag with the
// authority's expiry query. The deactivation event fires only on a
// true-to-false transition.
func (s *Service) RefreshSubscription(ctx context.Context, target id.ParticipantID) (subscribed bool, err error) {
	ctx, done := s.instrument(ctx, "refresh_subscription")
	defer func() { done(err) }()

	unlock := s.locks.Lock(target)
	defer unlock()

	record, err := s.registered(ctx, target)
	if err != nil {
		return false, err
	}
	return s.refreshRecord(ctx, record)
}

func (s *Service) refreshRecord(ctx context.Context, record *models.UserRecord) (bool, error) {
	actual := false
	if !record.CredentialID.IsZero() {
		remaining, err := s.authority.TimeUntilExpired(ctx, record.CredentialID)
		if err != nil {
			return record.Subscribed, dErrors.Wrap(err, dErrors.CodeCollaborator, "expiry query failed")
		}
		actual = remaining > 0
	}
	if actual == record.Subscribed {
		return actual, nil
	}
	wasSubscribed := record.Subscribed
	record.Subscribed = actual
	if err := s.users.Put(ctx, record); err != nil {
		return wasSubscribed, dErrors.Wrap(err, dErrors.CodeInternal, "update subscription flag")
	}
	if wasSubscribed && !actual {
		s.emit(ctx, audit.Event{
			Participant: record.ID,
			Action:      string(audit.EventDeactivated),
		})
	}
	return actual, nil
}

// refreshChain reconciles the cached flags of up to levels ancestors before
// reward distribution reads them.
func (s *Service) refreshChain(ctx context.Context, origin id.ParticipantID, levels int) {
	current, err := s.users.Get(ctx, origin)
	if err != nil {
		return
	}
	for level := 0; level < levels && current.HasReferrer(); level++ {
		referrer, err := s.users.Get(ctx, current.Referrer)
		if err != nil {
			return
		}
		if _, err := s.refreshRecord(ctx, referrer); err != nil {
			s.logger.WarnContext(ctx, "subscription refresh failed",
				"participant", referrer.ID.String(), "error", err)
		}
		current = referrer
	}
}

// RequestDeletion starts the self-deletion cooldown clock.
func (s *Service) RequestDeletion(ctx context.Context, target id.ParticipantID) (err error) {
	ctx, done := s.instrument(ctx, "request_deletion")
	defer func() { done(err) }()

	p := s.params.Snapshot()
	if !p.SelfDeletionEnabled {
		return dErrors.New(dErrors.CodeForbidden, "self-deletion is disabled")
	}

	unlock := s.locks.Lock(target)
	defer unlock()

	if _, err := s.registered(ctx, target); err != nil {
		return err
	}
	now := requestcontext.Now(ctx)
	if err := s.deletions.Request(ctx, target, now); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "record deletion request")
	}
	s.emit(ctx, audit.Event{
		Participant: target,
		Action:      string(audit.EventDeletionRequested),
	})
	return nil
}

// CancelDeletionRequest clears a pending request.
func (s *Service) CancelDeletionRequest(ctx context.Context, target id.ParticipantID) (err error) {
	ctx, done := s.instrument(ctx, "cancel_deletion_request")
	defer func() { done(err) }()

	unlock := s.locks.Lock(target)
	defer unlock()

	if _, err := s.registered(ctx, target); err != nil {
		return err
	}
	if _, err := s.deletions.Get(ctx, target); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeInvariantViolation, "no pending deletion request")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "load deletion request")
	}
	if err := s.deletions.Clear(ctx, target); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "clear deletion request")
	}
	s.emit(ctx, audit.Event{
		Participant: target,
		Action:      string(audit.EventDeletionCancelled),
	})
	return nil
}

// DeleteSelf erases the target after the cooldown has elapsed since its
// deletion request. The relinking in the store keeps every descendant
// reachable.
func (s *Service) DeleteSelf(ctx context.Context, target id.ParticipantID) (err error) {
	ctx, done := s.instrument(ctx, "delete_self")
	defer func() { done(err) }()

	p := s.params.Snapshot()
	if !p.SelfDeletionEnabled {
		return dErrors.New(dErrors.CodeForbidden, "self-deletion is disabled")
	}

	unlock, err := s.lockDeletion(ctx, target)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := s.registered(ctx, target); err != nil {
		return err
	}
	requestedAt, err := s.deletions.Get(ctx, target)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeInvariantViolation, "no pending deletion request")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "load deletion request")
	}
	if requestcontext.Now(ctx).Sub(requestedAt) < p.DeletionCooldown {
		return dErrors.New(dErrors.CodeInvariantViolation, "deletion cooldown has not elapsed")
	}
	return s.erase(ctx, target, target.String())
}

// AdminDelete erases the target immediately, no cooldown. Authorization is
// enforced at the transport boundary.
func (s *Service) AdminDelete(ctx context.Context, target id.ParticipantID) (err error) {
	ctx, done := s.instrument(ctx, "admin_delete")
	defer func() { done(err) }()

	unlock, err := s.lockDeletion(ctx, target)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := s.registered(ctx, target); err != nil {
		return err
	}
	return s.erase(ctx, target, requestcontext.Actor(ctx))
}

// lockDeletion covers the victim, its referrer, and its direct children —
// the full set the relink mutates. The child set is re-read under the lock
// by the store itself; the pre-read here only selects shards.
func (s *Service) lockDeletion(ctx context.Context, target id.ParticipantID) (func(), error) {
	keys := []id.ParticipantID{target}
	if record, err := s.users.Get(ctx, target); err == nil {
		keys = append(keys, record.Referrer)
	}
	children, err := s.users.EdgesOf(ctx, target)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load referral edges")
	}
	keys = append(keys, children...)
	return s.locks.Lock(keys...), nil
}

func (s *Service) erase(ctx context.Context, target id.ParticipantID, actor string) error {
	if err := s.users.Delete(ctx, target); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "participant is not registered")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete participant")
	}
	if err := s.deletions.Clear(ctx, target); err != nil {
		s.logger.WarnContext(ctx, "deletion request cleanup failed",
			"participant", target.String(), "error", err)
	}
	s.emit(ctx, audit.Event{
		Participant: target,
		Action:      string(audit.EventDeleted),
		ActorID:     actor,
	})
	return nil
}

// EmergencyWithdraw drains amount from the service's rail balance to the
// given address. Authorization is enforced at the transport boundary.
func (s *Service) EmergencyWithdraw(ctx context.Context, to id.ParticipantID, amount uint64) (err error) {
	ctx, done := s.instrument(ctx, "emergency_withdraw")
	defer func() { done(err) }()

	if to.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "destination is required")
	}
	if amount == 0 {
		return dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	if err := s.payments.Transfer(ctx, to, amount); err != nil {
		return dErrors.Wrap(err, dErrors.CodeCollaborator, "withdrawal transfer failed")
	}
	s.emit(ctx, audit.Event{
		Counterparty: to,
		Action:       string(audit.EventEmergencyWithdrawal),
		Amount:       amount,
	})
	return nil
}

// gates applies the preconditions shared by every mutating operation.
func (s *Service) gates() (params.Parameters, error) {
	p := s.params.Snapshot()
	if p.Paused {
		return p, dErrors.New(dErrors.CodeForbidden, "service is paused")
	}
	if s.payments == nil || s.authority == nil {
		return p, dErrors.New(dErrors.CodeInvariantViolation, "external collaborators are not connected")
	}
	return p, nil
}

// registered loads a record and requires it to be registered.
func (s *Service) registered(ctx context.Context, target id.ParticipantID) (*models.UserRecord, error) {
	record, err := s.users.Get(ctx, target)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "participant is not registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load participant")
	}
	if !record.Registered {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "participant is not registered")
	}
	return record, nil
}

// preflightPayment validates balance and allowance before any state change,
// converting rail failures into pre-mutation StateErrors.
func (s *Service) preflightPayment(ctx context.Context, payer id.ParticipantID, fee uint64) error {
	if fee == 0 {
		return nil
	}
	allowance, err := s.payments.Allowance(ctx, payer)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeCollaborator, "allowance query failed")
	}
	if allowance < fee {
		return dErrors.New(dErrors.CodeInvariantViolation, "insufficient allowance for fee")
	}
	balance, err := s.payments.BalanceOf(ctx, payer)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeCollaborator, "balance query failed")
	}
	if balance < fee {
		return dErrors.New(dErrors.CodeInvariantViolation, "insufficient balance for fee")
	}
	return nil
}

// chainKeys pre-reads the referrer chain to select lock shards for an
// operation that distributes rewards.
func (s *Service) chainKeys(ctx context.Context, origin id.ParticipantID, levels int) []id.ParticipantID {
	keys := []id.ParticipantID{origin}
	current, err := s.users.Get(ctx, origin)
	if err != nil {
		return keys
	}
	for level := 0; level < levels && current.HasReferrer(); level++ {
		keys = append(keys, current.Referrer)
		next, err := s.users.Get(ctx, current.Referrer)
		if err != nil {
			break
		}
		current = next
	}
	return keys
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.events == nil {
		return
	}
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	if event.ActorID == "" {
		event.ActorID = requestcontext.Actor(ctx)
	}
	_ = s.events.Emit(ctx, event)
}

func (s *Service) instrument(ctx context.Context, name string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "lifecycle."+name)
	return ctx, func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
		}
		span.End()
		s.metrics.ObserveOperation(name, outcome, time.Since(start))
	}
}
