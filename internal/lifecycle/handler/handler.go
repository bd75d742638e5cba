// Package handler exposes the participant lifecycle over HTTP. The acting
// participant is always the authenticated subject; handlers never accept a
// caller-supplied identity for mutations.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"refledger/internal/ledger/models"
	"refledger/internal/lifecycle"
	id "refledger/pkg/domain"
	dErrors "refledger/pkg/domain-errors"
	"refledger/pkg/platform/httputil"
	"refledger/pkg/requestcontext"
)

// Service defines the lifecycle operations the HTTP layer delegates to.
type Service interface {
	Register(ctx context.Context, participant, referrer id.ParticipantID) error
	Renew(ctx context.Context, target id.ParticipantID) error
	RefreshSubscription(ctx context.Context, target id.ParticipantID) (bool, error)
	RequestDeletion(ctx context.Context, target id.ParticipantID) error
	CancelDeletionRequest(ctx context.Context, target id.ParticipantID) error
	DeleteSelf(ctx context.Context, target id.ParticipantID) error

	Stats(ctx context.Context, target id.ParticipantID) (*models.UserRecord, error)
	BatchStats(ctx context.Context, targets []id.ParticipantID) ([]*models.UserRecord, error)
	Referrals(ctx context.Context, target id.ParticipantID) ([]id.ParticipantID, error)
	ReferralTree(ctx context.Context, target id.ParticipantID, depth int) ([]lifecycle.TreeNode, error)
	DeletionStatus(ctx context.Context, target id.ParticipantID) (lifecycle.DeletionStatus, error)
}

// Handler wires participant endpoints to the lifecycle service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a lifecycle handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the participant surface. All routes assume the auth
// middleware has already recorded the acting subject.
func (h *Handler) Register(r chi.Router) {
	r.Post("/participants", h.HandleRegister)
	r.Delete("/participants", h.HandleDeleteSelf)
	r.Post("/participants/renewal", h.HandleRenew)
	r.Post("/participants/subscription/refresh", h.HandleRefreshSubscription)
	r.Post("/participants/deletion-request", h.HandleRequestDeletion)
	r.Delete("/participants/deletion-request", h.HandleCancelDeletionRequest)

	r.Get("/participants/{participantID}/stats", h.HandleStats)
	r.Post("/participants/stats/batch", h.HandleBatchStats)
	r.Get("/participants/{participantID}/referrals", h.HandleReferrals)
	r.Get("/participants/{participantID}/referral-tree", h.HandleReferralTree)
	r.Get("/participants/{participantID}/deletion-status", h.HandleDeletionStatus)
}

// HandleRegister handles POST /participants requests.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	actor, ok := h.actor(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.Register(ctx, actor, req.ParsedReferrer()); err != nil {
		h.logger.ErrorContext(ctx, "registration failed",
			"request_id", requestID,
			"participant", actor,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "participant registered",
		"request_id", requestID,
		"participant", actor,
		"has_referrer", !req.ParsedReferrer().IsNil(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusCreated, &RegisterResponse{Participant: actor.String()})
}

// HandleRenew handles POST /participants/renewal requests.
func (h *Handler) HandleRenew(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor, ok := h.actor(w, ctx)
	if !ok {
		return
	}

	if err := h.service.Renew(ctx, actor); err != nil {
		h.logger.ErrorContext(ctx, "renewal failed",
			"request_id", requestID,
			"participant", actor,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &StatusResponse{Status: "renewed"})
}

// HandleRefreshSubscription handles POST /participants/subscription/refresh.
func (h *Handler) HandleRefreshSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := h.actor(w, ctx)
	if !ok {
		return
	}

	subscribed, err := h.service.RefreshSubscription(ctx, actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &RefreshResponse{Subscribed: subscribed})
}

// HandleRequestDeletion handles POST /participants/deletion-request.
func (h *Handler) HandleRequestDeletion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := h.actor(w, ctx)
	if !ok {
		return
	}

	if err := h.service.RequestDeletion(ctx, actor); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, &StatusResponse{Status: "deletion_requested"})
}

// HandleCancelDeletionRequest handles DELETE /participants/deletion-request.
func (h *Handler) HandleCancelDeletionRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := h.actor(w, ctx)
	if !ok {
		return
	}

	if err := h.service.CancelDeletionRequest(ctx, actor); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &StatusResponse{Status: "deletion_request_cancelled"})
}

// HandleDeleteSelf handles DELETE /participants requests.
func (h *Handler) HandleDeleteSelf(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor, ok := h.actor(w, ctx)
	if !ok {
		return
	}

	if err := h.service.DeleteSelf(ctx, actor); err != nil {
		h.logger.ErrorContext(ctx, "self-deletion failed",
			"request_id", requestID,
			"participant", actor,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "participant deleted",
		"request_id", requestID,
		"participant", actor,
	)

	httputil.WriteJSON(w, http.StatusOK, &StatusResponse{Status: "deleted"})
}

// actor resolves the authenticated subject to a participant id. A subject
// that is not a valid id means the token was minted for something else
// entirely, so the request is rejected rather than mapped to a 400.
func (h *Handler) actor(w http.ResponseWriter, ctx context.Context) (id.ParticipantID, bool) {
	subject := requestcontext.Actor(ctx)
	if subject == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.NilParticipant, false
	}
	participant, err := id.ParseParticipantID(subject)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "token subject is not a participant id"))
		return id.NilParticipant, false
	}
	return participant, true
}
