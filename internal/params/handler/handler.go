// Package handler exposes the administrative surface: parameter mutation,
// pause control, forced deletion, and emergency withdrawal. The router gates
// every route behind the admin token middleware.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"refledger/internal/params"
	id "refledger/pkg/domain"
	dErrors "refledger/pkg/domain-errors"
	"refledger/pkg/platform/httputil"
	"refledger/pkg/requestcontext"
)

// ParameterStore defines the admin parameter mutations.
type ParameterStore interface {
	Snapshot() params.Parameters
	SetRewardPercentage(ctx context.Context, level int, value uint32) error
	SetRegistrationFee(ctx context.Context, fee uint64) error
	SetSubscriptionFee(ctx context.Context, fee uint64) error
	SetSubscriptionDuration(ctx context.Context, d time.Duration) error
	SetMaxReferralDepth(ctx context.Context, depth int) error
	SetMaxReferralsPerQuery(ctx context.Context, max int) error
	SetPayoutAddress(ctx context.Context, address id.ParticipantID) error
	SetSelfDeletionEnabled(ctx context.Context, enabled bool) error
	SetDeletionCooldown(ctx context.Context, d time.Duration) error
	Pause(ctx context.Context) error
	Unpause(ctx context.Context) error
}

// Lifecycle defines the privileged lifecycle operations reachable from the
// admin surface.
type Lifecycle interface {
	AdminDelete(ctx context.Context, target id.ParticipantID) error
	EmergencyWithdraw(ctx context.Context, to id.ParticipantID, amount uint64) error
}

// Handler wires admin endpoints to the parameter store and lifecycle service.
type Handler struct {
	store     ParameterStore
	lifecycle Lifecycle
	logger    *slog.Logger
}

// New constructs an admin handler with its dependencies.
func New(store ParameterStore, lifecycle Lifecycle, logger *slog.Logger) *Handler {
	return &Handler{store: store, lifecycle: lifecycle, logger: logger}
}

// Register mounts the admin surface.
func (h *Handler) Register(r chi.Router) {
	r.Get("/parameters", h.HandleSnapshot)
	r.Put("/parameters/reward-percentages/{level}", h.HandleSetRewardPercentage)
	r.Put("/parameters/registration-fee", h.HandleSetRegistrationFee)
	r.Put("/parameters/subscription-fee", h.HandleSetSubscriptionFee)
	r.Put("/parameters/subscription-duration", h.HandleSetSubscriptionDuration)
	r.Put("/parameters/max-referral-depth", h.HandleSetMaxReferralDepth)
	r.Put("/parameters/max-referrals-per-query", h.HandleSetMaxReferralsPerQuery)
	r.Put("/parameters/payout-address", h.HandleSetPayoutAddress)
	r.Put("/parameters/self-deletion", h.HandleSetSelfDeletionEnabled)
	r.Put("/parameters/deletion-cooldown", h.HandleSetDeletionCooldown)
	r.Post("/pause", h.HandlePause)
	r.Post("/unpause", h.HandleUnpause)
	r.Delete("/participants/{participantID}", h.HandleAdminDelete)
	r.Post("/withdraw", h.HandleEmergencyWithdraw)
}

// HandleSnapshot handles GET /admin/parameters.
func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, FromParameters(h.store.Snapshot()))
}

// HandleSetRewardPercentage handles PUT /admin/parameters/reward-percentages/{level}.
func (h *Handler) HandleSetRewardPercentage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	level, ok := pathLevel(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SetRewardPercentageRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.store.SetRewardPercentage(ctx, level, req.BasisPoints); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "reward percentage updated",
		"request_id", requestID,
		"level", level,
		"basis_points", req.BasisPoints,
	)
	httputil.WriteJSON(w, http.StatusOK, FromParameters(h.store.Snapshot()))
}

// HandleSetRegistrationFee handles PUT /admin/parameters/registration-fee.
func (h *Handler) HandleSetRegistrationFee(w http.ResponseWriter, r *http.Request) {
	h.setFee(w, r, "registration fee updated", h.store.SetRegistrationFee)
}

// HandleSetSubscriptionFee handles PUT /admin/parameters/subscription-fee.
func (h *Handler) HandleSetSubscriptionFee(w http.ResponseWriter, r *http.Request) {
	h.setFee(w, r, "subscription fee updated", h.store.SetSubscriptionFee)
}

func (h *Handler) setFee(w http.ResponseWriter, r *http.Request, msg string, set func(context.Context, uint64) error) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SetFeeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := set(ctx, req.Fee); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, msg, "request_id", requestID, "fee", req.Fee)
	httputil.WriteJSON(w, http.StatusOK, FromParameters(h.store.Snapshot()))
}

// HandleSetSubscriptionDuration handles PUT /admin/parameters/subscription-duration.
func (h *Handler) HandleSetSubscriptionDuration(w http.ResponseWriter, r *http.Request) {
	h.setDuration(w, r, "subscription duration updated", h.store.SetSubscriptionDuration)
}

// HandleSetDeletionCooldown handles PUT /admin/parameters/deletion-cooldown.
func (h *Handler) HandleSetDeletionCooldown(w http.ResponseWriter, r *http.Request) {
	h.setDuration(w, r, "deletion cooldown updated", h.store.SetDeletionCooldown)
}

func (h *Handler) setDuration(w http.ResponseWriter, r *http.Request, msg string, set func(context.Context, time.Duration) error) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SetDurationRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	d := time.Duration(req.Seconds) * time.Second
	if err := set(ctx, d); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, msg, "request_id", requestID, "duration", d)
	httputil.WriteJSON(w, http.StatusOK, FromParameters(h.store.Snapshot()))
}

// HandleSetMaxReferralDepth handles PUT /admin/parameters/max-referral-depth.
func (h *Handler) HandleSetMaxReferralDepth(w http.ResponseWriter, r *http.Request) {
	h.setLimit(w, r, "max referral depth updated", h.store.SetMaxReferralDepth)
}

// HandleSetMaxReferralsPerQuery handles PUT /admin/parameters/max-referrals-per-query.
func (h *Handler) HandleSetMaxReferralsPerQuery(w http.ResponseWriter, r *http.Request) {
	h.setLimit(w, r, "max referrals per query updated", h.store.SetMaxReferralsPerQuery)
}

func (h *Handler) setLimit(w http.ResponseWriter, r *http.Request, msg string, set func(context.Context, int) error) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SetLimitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := set(ctx, req.Value); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, msg, "request_id", requestID, "value", req.Value)
	httputil.WriteJSON(w, http.StatusOK, FromParameters(h.store.Snapshot()))
}

// HandleSetPayoutAddress handles PUT /admin/parameters/payout-address.
func (h *Handler) HandleSetPayoutAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SetPayoutAddressRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.store.SetPayoutAddress(ctx, req.ParsedAddress()); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "payout address updated",
		"request_id", requestID,
		"address", req.ParsedAddress(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromParameters(h.store.Snapshot()))
}

// HandleSetSelfDeletionEnabled handles PUT /admin/parameters/self-deletion.
func (h *Handler) HandleSetSelfDeletionEnabled(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SetSelfDeletionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.store.SetSelfDeletionEnabled(ctx, req.Enabled); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "self-deletion toggled",
		"request_id", requestID,
		"enabled", req.Enabled,
	)
	httputil.WriteJSON(w, http.StatusOK, FromParameters(h.store.Snapshot()))
}

// HandlePause handles POST /admin/pause.
func (h *Handler) HandlePause(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.store.Pause(ctx); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.WarnContext(ctx, "service paused",
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"paused": true})
}

// HandleUnpause handles POST /admin/unpause.
func (h *Handler) HandleUnpause(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.store.Unpause(ctx); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "service unpaused",
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"paused": false})
}

// HandleAdminDelete handles DELETE /admin/participants/{participantID}.
func (h *Handler) HandleAdminDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	target, err := id.ParseParticipantID(chi.URLParam(r, "participantID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.lifecycle.AdminDelete(ctx, target); err != nil {
		h.logger.ErrorContext(ctx, "forced deletion failed",
			"request_id", requestID,
			"participant", target,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "participant force-deleted",
		"request_id", requestID,
		"participant", target,
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// HandleEmergencyWithdraw handles POST /admin/withdraw.
func (h *Handler) HandleEmergencyWithdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[EmergencyWithdrawRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.lifecycle.EmergencyWithdraw(ctx, req.ParsedTo(), req.Amount); err != nil {
		h.logger.ErrorContext(ctx, "emergency withdrawal failed",
			"request_id", requestID,
			"to", req.ParsedTo(),
			"amount", req.Amount,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.WarnContext(ctx, "emergency withdrawal executed",
		"request_id", requestID,
		"to", req.ParsedTo(),
		"amount", req.Amount,
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "withdrawn"})
}

func pathLevel(w http.ResponseWriter, r *http.Request) (int, bool) {
	level, err := strconv.Atoi(chi.URLParam(r, "level"))
	if err != nil || level < 1 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "level must be a positive integer"))
		return 0, false
	}
	return level, true
}
