package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"sentra/internal/audit"
	"sentra/internal/gateway"
	id "sentra/pkg/domain"
	"sentra/pkg/platform/httputil"
)

// Service defines the gateway operations the HTTP layer depends on.
type Service interface {
	Access(ctx context.Context, req gateway.Request) (*gateway.Result, error)
	QueryTrail(ctx context.Context, q audit.TrailQuery) (audit.Page, error)
}

// Handler wires access and audit-trail endpoints to the gateway service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a gateway handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts gateway endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/access", h.HandleAccess)
	r.Get("/audit", h.HandleQueryTrail)
}

// HandleAccess handles POST /access requests.
func (h *Handler) HandleAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	req, ok := httputil.Decode[gateway.Request](w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.service.Access(ctx, req)
	if err != nil {
		var accessErr *gateway.AccessError
		if errors.As(err, &accessErr) {
			httputil.WriteError(w, statusFor(accessErr.Code), string(accessErr.Code), accessErr.Reason)
			return
		}
		h.logger.ErrorContext(ctx, "access request failed",
			"operation", req.Operation,
			"resource_type", req.Resource.Type,
			"error", err,
		)
		httputil.WriteError(w, http.StatusInternalServerError, string(gateway.CodeInternal), "")
		return
	}

	h.logger.InfoContext(ctx, "access granted",
		"record_id", result.RecordID,
		"operation", req.Operation,
		"resource_type", req.Resource.Type,
		"high_risk", result.HighRisk,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}

// HandleQueryTrail handles GET /audit requests.
func (h *Handler) HandleQueryTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q, err := trailQueryFromURL(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, string(gateway.CodeBadRequest), err.Error())
		return
	}

	page, err := h.service.QueryTrail(ctx, q)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit trail query failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, string(gateway.CodeInternal), "")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromPage(page))
}

// trailQueryFromURL parses GET /audit query parameters.
func trailQueryFromURL(r *http.Request) (audit.TrailQuery, error) {
	var q audit.TrailQuery
	values := r.URL.Query()

	if raw := values.Get("owner_id"); raw != "" {
		ownerID, err := id.ParseOwnerID(raw)
		if err != nil {
			return q, err
		}
		q.OwnerID = &ownerID
	}
	if raw := values.Get("subject_id"); raw != "" {
		subjectID, err := id.ParseSubjectID(raw)
		if err != nil {
			return q, err
		}
		q.SubjectID = &subjectID
	}
	if raw := values.Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return q, err
		}
		q.From = from
	}
	if raw := values.Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return q, err
		}
		q.To = to
	}
	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return q, err
		}
		q.Limit = limit
	}
	q.Cursor = values.Get("cursor")
	return q, nil
}

func statusFor(code gateway.Code) int {
	switch code {
	case gateway.CodeBadRequest:
		return http.StatusBadRequest
	case gateway.CodeDenied, gateway.CodeApprovalRequired:
		return http.StatusForbidden
	case gateway.CodeNotFound:
		return http.StatusNotFound
	case gateway.CodeAuditUnavailable:
		return http.StatusServiceUnavailable
	case gateway.CodeDecryptionFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
