package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"guardian/internal/ledger"
	"guardian/internal/workflow"
	dErrors "guardian/pkg/domain-errors"
	"guardian/pkg/platform/httputil"
	"guardian/pkg/requestcontext"
)

// Decider runs one workflow invocation.
type Decider interface {
	Decide(ctx context.Context, req workflow.Request) (*workflow.Result, error)
}

// AuditLister reads the ledger in append order.
type AuditLister interface {
	All(ctx context.Context) ([]ledger.Entry, error)
}

// Handler wires the access request endpoints to the workflow engine.
type Handler struct {
	engine Decider
	audit  AuditLister
	logger *slog.Logger
}

// New constructs a workflow handler with its dependencies.
func New(engine Decider, audit AuditLister, logger *slog.Logger) *Handler {
	return &Handler{
		engine: engine,
		audit:  audit,
		logger: logger,
	}
}

// Register mounts the workflow endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/access-requests", h.HandleAccessRequest)
	r.Get("/v1/audit-entries", h.HandleAuditEntries)
}

// HandleAccessRequest handles POST /v1/access-requests.
func (h *Handler) HandleAccessRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller := requestcontext.Caller(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[AccessRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.engine.Decide(ctx, req.ToRequest())
	if err != nil {
		h.logger.ErrorContext(ctx, "access request failed",
			"request_id", requestID,
			"caller", caller,
			"intent", req.Intent,
			"code", dErrors.CodeOf(err),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "access request served",
		"request_id", requestID,
		"caller", caller,
		"intent", req.Intent,
		"outcome", result.Outcome,
		"delivery_degraded", result.DeliveryDegraded,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}

// HandleAuditEntries handles GET /v1/audit-entries.
func (h *Handler) HandleAuditEntries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entries, err := h.audit.All(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list audit entries",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "audit ledger unavailable"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromEntries(entries))
}
