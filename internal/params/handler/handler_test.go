package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"refledger/internal/ledger/store/deletion"
	userstore "refledger/internal/ledger/store/user"
	"refledger/internal/lifecycle"
	"refledger/internal/lifecycle/adapters/fake"
	"refledger/internal/lifecycle/metrics"
	"refledger/internal/params"
	"refledger/internal/platform/middleware"
	"refledger/internal/reward"
	rewardmetrics "refledger/internal/reward/metrics"
	id "refledger/pkg/domain"
	"refledger/pkg/platform/audit/publisher"
	auditmemory "refledger/pkg/platform/audit/store/memory"
)

const adminToken = "test-admin-token"

type adminFixture struct {
	router http.Handler
	params *params.Store
	rail   *fake.PaymentRail
	svc    *lifecycle.Service
}

func newAdminRouter(t *testing.T) *adminFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	events := publisher.NewPublisher(auditmemory.NewInMemoryStore())
	users := userstore.New()
	paramStore := params.NewStore(params.Defaults(), events)
	rail := fake.NewPaymentRail(1_000)
	authority := fake.NewSubscriptionAuthority(30 * 24 * time.Hour)
	engine := reward.NewEngine(users, rail, events, rewardmetrics.New(nil), logger)
	svc := lifecycle.NewService(
		users, deletion.NewInMemoryStore(), paramStore,
		rail, authority,
		engine, events,
		metrics.New(nil), logger,
	)

	hash, err := bcrypt.GenerateFromPassword([]byte(adminToken), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash admin token: %v", err)
	}

	h := New(paramStore, svc, logger)
	r := chi.NewRouter()
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdminToken(string(hash), logger))
		h.Register(r)
	})
	return &adminFixture{router: r, params: paramStore, rail: rail, svc: svc}
}

func (f *adminFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Token", adminToken)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *adminFixture) decodeParameters(t *testing.T, rec *httptest.ResponseRecorder) ParametersResponse {
	t.Helper()
	var resp ParametersResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode parameters response: %v", err)
	}
	return resp
}

func TestAdminTokenRequired(t *testing.T) {
	f := newAdminRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/parameters", nil)
	// No admin token header set
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 when admin token missing, got %d", rec.Code)
	}
}

func TestSnapshotReturnsDefaults(t *testing.T) {
	f := newAdminRouter(t)

	rec := f.do(t, http.MethodGet, "/admin/parameters", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching parameters, got %d", rec.Code)
	}
	resp := f.decodeParameters(t, rec)
	if len(resp.RewardPercentages) != 3 || resp.RewardPercentages[0] != 500 {
		t.Fatalf("expected default reward percentages, got %v", resp.RewardPercentages)
	}
	if resp.Paused || resp.SelfDeletionEnabled {
		t.Fatalf("expected pause and self-deletion off by default")
	}
}

func TestSetRewardPercentage(t *testing.T) {
	f := newAdminRouter(t)

	rec := f.do(t, http.MethodPut, "/admin/parameters/reward-percentages/2", map[string]uint32{"basis_points": 250})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 updating level 2, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := f.decodeParameters(t, rec)
	if resp.RewardPercentages[1] != 250 {
		t.Fatalf("expected level 2 set to 250, got %v", resp.RewardPercentages)
	}

	// Levels are capped independently at 1000bp; the cross-level sum is not.
	rec = f.do(t, http.MethodPut, "/admin/parameters/reward-percentages/1", map[string]uint32{"basis_points": 1000})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 setting level 1 to the per-level cap, got %d: %s", rec.Code, rec.Body.String())
	}
	if resp := f.decodeParameters(t, rec); resp.RewardPercentages[0] != 1000 {
		t.Fatalf("expected level 1 set to 1000, got %v", resp.RewardPercentages)
	}

	rec = f.do(t, http.MethodPut, "/admin/parameters/reward-percentages/1", map[string]uint32{"basis_points": 1001})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 above the per-level cap, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPut, "/admin/parameters/reward-percentages/0", map[string]uint32{"basis_points": 100})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for level 0, got %d", rec.Code)
	}
}

func TestSetFeesAndDurations(t *testing.T) {
	f := newAdminRouter(t)

	rec := f.do(t, http.MethodPut, "/admin/parameters/registration-fee", map[string]uint64{"fee": 250})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 setting registration fee, got %d", rec.Code)
	}
	if resp := f.decodeParameters(t, rec); resp.RegistrationFee != 250 {
		t.Fatalf("expected registration fee 250, got %d", resp.RegistrationFee)
	}

	rec = f.do(t, http.MethodPut, "/admin/parameters/subscription-duration", map[string]int64{"seconds": 3600})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 setting subscription duration, got %d", rec.Code)
	}
	if resp := f.decodeParameters(t, rec); resp.SubscriptionDurationSecs != 3600 {
		t.Fatalf("expected subscription duration 3600s, got %d", resp.SubscriptionDurationSecs)
	}

	rec = f.do(t, http.MethodPut, "/admin/parameters/subscription-duration", map[string]int64{"seconds": 0})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a zero duration, got %d", rec.Code)
	}
}

func TestPauseGatesRegistration(t *testing.T) {
	f := newAdminRouter(t)

	rec := f.do(t, http.MethodPost, "/admin/pause", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 pausing, got %d", rec.Code)
	}
	if err := f.svc.Register(context.Background(), id.NewParticipantID(), id.NilParticipant); err == nil {
		t.Fatalf("expected registration to fail while paused")
	}

	rec = f.do(t, http.MethodPost, "/admin/unpause", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 unpausing, got %d", rec.Code)
	}
	if f.params.Snapshot().Paused {
		t.Fatalf("expected pause flag cleared")
	}
}

func TestAdminDelete(t *testing.T) {
	f := newAdminRouter(t)
	participant := id.NewParticipantID()
	ctx := context.Background()
	if err := f.svc.Register(ctx, participant, id.NilParticipant); err != nil {
		t.Fatalf("failed to seed participant: %v", err)
	}

	rec := f.do(t, http.MethodDelete, "/admin/participants/"+participant.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 force-deleting, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodDelete, "/admin/participants/"+participant.String(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 deleting twice, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodDelete, "/admin/participants/not-an-id", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a malformed participant id, got %d", rec.Code)
	}
}

func TestEmergencyWithdraw(t *testing.T) {
	f := newAdminRouter(t)
	participant := id.NewParticipantID()
	ctx := context.Background()
	if err := f.svc.Register(ctx, participant, id.NilParticipant); err != nil {
		t.Fatalf("failed to seed participant: %v", err)
	}

	destination := id.NewParticipantID()
	rec := f.do(t, http.MethodPost, "/admin/withdraw", map[string]any{"to": destination.String(), "amount": 50})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 withdrawing, got %d: %s", rec.Code, rec.Body.String())
	}
	if f.rail.Treasury() != 50 {
		t.Fatalf("expected 50 left in the treasury, got %d", f.rail.Treasury())
	}

	rec = f.do(t, http.MethodPost, "/admin/withdraw", map[string]any{"to": destination.String(), "amount": 0})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 withdrawing zero, got %d", rec.Code)
	}
}
