package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sentra/internal/retention"
	"sentra/pkg/platform/httputil"
)

// Scheduler defines the retention operations the HTTP layer depends on.
type Scheduler interface {
	Run(ctx context.Context, policy retention.Policy) error
	State() retention.State
}

// Handler exposes manual retention triggers and state for operators. The
// periodic runner covers normal operation; these endpoints exist for
// incident response and backfills.
type Handler struct {
	scheduler Scheduler
	policies  map[string]retention.Policy
	logger    *slog.Logger
}

// New constructs a retention handler over the configured policies.
func New(scheduler Scheduler, policies []retention.Policy, logger *slog.Logger) *Handler {
	byTable := make(map[string]retention.Policy, len(policies))
	for _, p := range policies {
		byTable[p.Table] = p
	}
	return &Handler{scheduler: scheduler, policies: byTable, logger: logger}
}

// Register mounts retention endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/retention/{table}/run", h.HandleRun)
	r.Get("/retention/state", h.HandleState)
}

// HandleRun handles POST /retention/{table}/run requests. The pass runs
// synchronously; long tables should be triggered off-peak.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	table := chi.URLParam(r, "table")
	policy, ok := h.policies[table]
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "not_found", "no retention policy for table")
		return
	}

	if err := h.scheduler.Run(ctx, policy); err != nil {
		if errors.Is(err, retention.ErrAlreadyRunning) {
			httputil.WriteError(w, http.StatusConflict, "already_running", err.Error())
			return
		}
		h.logger.ErrorContext(ctx, "manual retention pass failed", "table", table, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "")
		return
	}

	h.logger.InfoContext(ctx, "manual retention pass complete", "table", table)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"table": table, "status": "complete"})
}

// HandleState handles GET /retention/state requests.
func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"state": string(h.scheduler.State())})
}
