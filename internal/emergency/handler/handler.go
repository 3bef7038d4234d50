package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sentra/internal/emergency"
	id "sentra/pkg/domain"
	"sentra/pkg/platform/httputil"
	"sentra/pkg/platform/sentinel"
)

// Service defines the emergency operations the HTTP layer depends on.
type Service interface {
	Open(ctx context.Context, in emergency.OpenInput) (emergency.Event, error)
	Respond(ctx context.Context, eventID id.EventID) (emergency.Event, error)
	Resolve(ctx context.Context, eventID id.EventID, outcome emergency.Outcome) (emergency.Event, error)
}

// Handler wires emergency endpoints to the tracker service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an emergency handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts emergency endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/emergencies", h.HandleOpen)
	r.Post("/emergencies/{eventID}/respond", h.HandleRespond)
	r.Post("/emergencies/{eventID}/resolve", h.HandleResolve)
}

// OpenRequest is the HTTP request for POST /emergencies.
type OpenRequest struct {
	OwnerID   string `json:"owner_id"`
	SessionID string `json:"session_id,omitempty"`
	Type      string `json:"type"`
	Severity  int    `json:"severity"`
}

// ResolveRequest is the HTTP request for POST /emergencies/{eventID}/resolve.
type ResolveRequest struct {
	Outcome string `json:"outcome"`
}

// EventResponse is one emergency event on the wire.
type EventResponse struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	SessionID   string     `json:"session_id,omitempty"`
	Type        string     `json:"type"`
	Severity    int        `json:"severity"`
	Status      string     `json:"status"`
	TriggeredAt time.Time  `json:"triggered_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

func fromEvent(e emergency.Event) EventResponse {
	return EventResponse{
		ID:          e.ID.String(),
		OwnerID:     e.OwnerID.String(),
		SessionID:   e.SessionID,
		Type:        e.Type,
		Severity:    e.Severity,
		Status:      string(e.Status),
		TriggeredAt: e.TriggeredAt,
		RespondedAt: e.RespondedAt,
		ResolvedAt:  e.ResolvedAt,
	}
}

// HandleOpen handles POST /emergencies requests.
func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[OpenRequest](w, r, h.logger)
	if !ok {
		return
	}
	ownerID, err := id.ParseOwnerID(req.OwnerID)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	event, err := h.service.Open(ctx, emergency.OpenInput{
		OwnerID:   ownerID,
		SessionID: req.SessionID,
		Type:      req.Type,
		Severity:  req.Severity,
	})
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	h.logger.InfoContext(ctx, "emergency opened",
		"event_id", event.ID,
		"owner_id", event.OwnerID,
		"severity", event.Severity,
	)
	httputil.WriteJSON(w, http.StatusCreated, fromEvent(event))
}

// HandleRespond handles POST /emergencies/{eventID}/respond requests.
func (h *Handler) HandleRespond(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, eventID id.EventID) (emergency.Event, error) {
		return h.service.Respond(ctx, eventID)
	})
}

// HandleResolve handles POST /emergencies/{eventID}/resolve requests.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[ResolveRequest](w, r, h.logger)
	if !ok {
		return
	}
	h.transition(w, r, func(ctx context.Context, eventID id.EventID) (emergency.Event, error) {
		return h.service.Resolve(ctx, eventID, emergency.Outcome(req.Outcome))
	})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, id.EventID) (emergency.Event, error)) {
	ctx := r.Context()

	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	event, err := fn(ctx, eventID)
	switch {
	case err == nil:
		httputil.WriteJSON(w, http.StatusOK, fromEvent(event))
	case errors.Is(err, sentinel.ErrNotFound):
		httputil.WriteError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, sentinel.ErrInvalidState):
		httputil.WriteError(w, http.StatusConflict, "invalid_state", err.Error())
	default:
		h.logger.ErrorContext(ctx, "emergency transition failed", "event_id", eventID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "internal", "")
	}
}
