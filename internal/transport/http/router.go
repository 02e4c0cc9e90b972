// Package httptransport assembles the public HTTP surface: the API routes
// behind service-token auth, plus unauthenticated health and metrics.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"guardian/internal/platform/metrics"
	"guardian/internal/ratelimit"
	"guardian/pkg/platform/httputil"
	authmw "guardian/pkg/platform/middleware/auth"
	"guardian/pkg/platform/middleware/request"
	"guardian/pkg/platform/middleware/requesttime"
)

const healthCheckTimeout = 2 * time.Second

// RouteRegistrar is implemented by feature handlers.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// HealthCheck pings one backing dependency.
type HealthCheck func(ctx context.Context) error

// Config carries everything the router needs. A nil Limiter disables
// per-caller limits. Checks are reported by /healthz under their key.
type Config struct {
	Logger    *slog.Logger
	Gatherer  prometheus.Gatherer
	HTTP      *metrics.HTTP
	Validator authmw.Validator
	Limiter   *ratelimit.Limiter
	Handlers  []RouteRegistrar
	Checks    map[string]HealthCheck
}

// NewRouter wires middleware and routes.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(cfg.Logger, cfg.HTTP))
	r.Use(request.Recovery(cfg.Logger))

	r.Get("/healthz", healthHandler(cfg.Checks))
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(cfg.Gatherer))
	}

	r.Group(func(api chi.Router) {
		api.Use(authmw.RequireServiceToken(cfg.Validator, cfg.Logger))
		if cfg.Limiter != nil {
			api.Use(ratelimit.Middleware(cfg.Limiter, cfg.Logger))
		}
		for _, h := range cfg.Handlers {
			h.Register(api)
		}
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = "down"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "up"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
