package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	id "refledger/pkg/domain"
	dErrors "refledger/pkg/domain-errors"
	"refledger/pkg/platform/httputil"
	"refledger/pkg/requestcontext"
)

// HandleStats handles GET /participants/{participantID}/stats.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	target, ok := pathParticipant(w, r)
	if !ok {
		return
	}

	record, err := h.service.Stats(ctx, target)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromRecord(record))
}

// HandleBatchStats handles POST /participants/stats/batch.
func (h *Handler) HandleBatchStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[BatchStatsRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	records, err := h.service.BatchStats(ctx, req.ParsedParticipants())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := BatchStatsResponse{Participants: make([]*StatsResponse, 0, len(records))}
	for _, record := range records {
		resp.Participants = append(resp.Participants, FromRecord(record))
	}
	httputil.WriteJSON(w, http.StatusOK, &resp)
}

// HandleReferrals handles GET /participants/{participantID}/referrals.
func (h *Handler) HandleReferrals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	target, ok := pathParticipant(w, r)
	if !ok {
		return
	}

	referees, err := h.service.Referrals(ctx, target)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := ReferralsResponse{Referrals: make([]string, 0, len(referees))}
	for _, referee := range referees {
		resp.Referrals = append(resp.Referrals, referee.String())
	}
	httputil.WriteJSON(w, http.StatusOK, &resp)
}

// HandleReferralTree handles GET /participants/{participantID}/referral-tree.
// Depth comes from the query string and defaults to 1.
func (h *Handler) HandleReferralTree(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	target, ok := pathParticipant(w, r)
	if !ok {
		return
	}

	depth := 1
	if raw := r.URL.Query().Get("depth"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "depth must be an integer"))
			return
		}
		depth = parsed
	}

	nodes, err := h.service.ReferralTree(ctx, target, depth)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := TreeResponse{Nodes: make([]TreeNodeResponse, 0, len(nodes))}
	for _, node := range nodes {
		resp.Nodes = append(resp.Nodes, TreeNodeResponse{
			Participant:     node.Participant.String(),
			Level:           node.Level,
			EstimatedReward: node.EstimatedReward,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, &resp)
}

// HandleDeletionStatus handles GET /participants/{participantID}/deletion-status.
func (h *Handler) HandleDeletionStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	target, ok := pathParticipant(w, r)
	if !ok {
		return
	}

	status, err := h.service.DeletionStatus(ctx, target)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromDeletionStatus(status))
}

func pathParticipant(w http.ResponseWriter, r *http.Request) (id.ParticipantID, bool) {
	target, err := id.ParseParticipantID(chi.URLParam(r, "participantID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.NilParticipant, false
	}
	return target, true
}
