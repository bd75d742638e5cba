// Package httptransport assembles the HTTP surface: participant routes
// behind bearer auth, admin routes behind the admin token, and the
// operational endpoints. Business logic stays in the services; this package
// only composes middleware and handlers.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	lifecyclehandler "refledger/internal/lifecycle/handler"
	paramshandler "refledger/internal/params/handler"
	"refledger/internal/platform/middleware"
	"refledger/pkg/platform/httputil"
)

// HealthChecker reports readiness of a backing dependency.
type HealthChecker func(ctx context.Context) error

// RouterConfig carries everything the router composes.
type RouterConfig struct {
	Logger    *slog.Logger
	Lifecycle *lifecyclehandler.Handler
	Admin     *paramshandler.Handler

	Auth           middleware.JWTValidator
	AdminTokenHash string

	// RateLimit caps requests per actor per minute on the participant
	// surface; zero disables the limiter.
	RateLimit int

	// RequestTimeout bounds every handler via the request context.
	RequestTimeout time.Duration

	// Health holds named dependency probes for /healthz.
	Health map[string]HealthChecker
}

// NewRouter wires all endpoints.
func NewRouter(cfg RouterConfig) http.Handler {
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.ContentTypeJSON)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(cfg.Auth, cfg.Logger))
		if cfg.RateLimit > 0 {
			r.Use(middleware.NewRateLimiter(cfg.RateLimit, time.Minute).Limit)
		}
		cfg.Lifecycle.Register(r)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdminToken(cfg.AdminTokenHash, cfg.Logger))
		cfg.Admin.Register(r)
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", healthHandler(cfg.Health))

	return r
}

// healthHandler probes every dependency and reports per-dependency status.
// Any failing probe turns the response into a 503 so load balancers stop
// routing before the failure cascades.
func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				deps[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			deps[name] = "ok"
		}

		body := map[string]any{"status": "ok"}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		if len(deps) > 0 {
			body["dependencies"] = deps
		}
		httputil.WriteJSON(w, status, body)
	}
}
