package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sentra/internal/profile"
	id "sentra/pkg/domain"
	"sentra/pkg/platform/httputil"
	"sentra/pkg/platform/sentinel"
)

// Service defines the profile operations the HTTP layer depends on.
type Service interface {
	Enroll(ctx context.Context, in profile.EnrollInput) (profile.Profile, error)
	SetLegalHold(ctx context.Context, ownerID id.OwnerID, hold bool) error
	Reencrypt(ctx context.Context, ownerID id.OwnerID) error
}

// Handler wires profile administration endpoints to the profile service.
// Field reads and writes go through the access gateway, never through here.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a profile handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts profile endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/profiles", h.HandleEnroll)
	r.Put("/profiles/{ownerID}/legal-hold", h.HandleLegalHold)
	r.Post("/profiles/{ownerID}/reencrypt", h.HandleReencrypt)
}

// EnrollRequest is the HTTP request for POST /profiles. Field values are
// base64-encoded plaintext; they are encrypted before storage.
type EnrollRequest struct {
	OwnerID           string            `json:"owner_id"`
	Priority          int               `json:"priority"`
	ThreatLevel       string            `json:"threat_level"`
	Fields            map[string]string `json:"fields,omitempty"`
	RequiresTwoFactor bool              `json:"requires_two_factor,omitempty"`
	RequiresBiometric bool              `json:"requires_biometric,omitempty"`
	IPAllowlist       []string          `json:"ip_allowlist,omitempty"`
}

// LegalHoldRequest is the HTTP request for PUT /profiles/{ownerID}/legal-hold.
type LegalHoldRequest struct {
	Hold bool `json:"hold"`
}

// EnrollResponse is the HTTP response for POST /profiles. It never echoes
// field contents back.
type EnrollResponse struct {
	OwnerID      string    `json:"owner_id"`
	Priority     int       `json:"priority"`
	ThreatLevel  string    `json:"threat_level"`
	FieldCount   int       `json:"field_count"`
	CreatedAt    time.Time `json:"created_at"`
	NextReviewAt time.Time `json:"next_review_at"`
}

func (r EnrollRequest) toInput() (profile.EnrollInput, error) {
	var in profile.EnrollInput

	ownerID, err := id.ParseOwnerID(r.OwnerID)
	if err != nil {
		return in, err
	}
	level, ok := profile.ParseThreatLevel(r.ThreatLevel)
	if !ok {
		return in, fmt.Errorf("unknown threat level %q", r.ThreatLevel)
	}

	fields := make(map[string][]byte, len(r.Fields))
	for name, encoded := range r.Fields {
		plaintext, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return in, fmt.Errorf("field %q is not base64", name)
		}
		fields[name] = plaintext
	}

	in = profile.EnrollInput{
		OwnerID:           ownerID,
		Priority:          r.Priority,
		ThreatLevel:       level,
		Fields:            fields,
		RequiresTwoFactor: r.RequiresTwoFactor,
		RequiresBiometric: r.RequiresBiometric,
		IPAllowlist:       r.IPAllowlist,
	}
	return in, nil
}

// HandleEnroll handles POST /profiles requests.
func (h *Handler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[EnrollRequest](w, r, h.logger)
	if !ok {
		return
	}
	in, err := req.toInput()
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	p, err := h.service.Enroll(ctx, in)
	switch {
	case err == nil:
	case errors.Is(err, sentinel.ErrConflict):
		httputil.WriteError(w, http.StatusConflict, "conflict", "owner already has a protected profile")
		return
	default:
		h.logger.ErrorContext(ctx, "enrollment failed", "owner_id", in.OwnerID, "error", err)
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	h.logger.InfoContext(ctx, "owner enrolled",
		"owner_id", p.OwnerID,
		"threat_level", p.ThreatLevel,
		"field_count", len(p.Fields),
	)
	httputil.WriteJSON(w, http.StatusCreated, EnrollResponse{
		OwnerID:      p.OwnerID.String(),
		Priority:     p.Priority,
		ThreatLevel:  string(p.ThreatLevel),
		FieldCount:   len(p.Fields),
		CreatedAt:    p.CreatedAt,
		NextReviewAt: p.NextReviewAt,
	})
}

// HandleLegalHold handles PUT /profiles/{ownerID}/legal-hold requests.
func (h *Handler) HandleLegalHold(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, err := id.ParseOwnerID(chi.URLParam(r, "ownerID"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	req, ok := httputil.Decode[LegalHoldRequest](w, r, h.logger)
	if !ok {
		return
	}

	if err := h.service.SetLegalHold(ctx, ownerID, req.Hold); err != nil {
		h.writeServiceError(ctx, w, "legal hold update failed", ownerID, err)
		return
	}

	h.logger.InfoContext(ctx, "legal hold updated", "owner_id", ownerID, "hold", req.Hold)
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"hold": req.Hold})
}

// HandleReencrypt handles POST /profiles/{ownerID}/reencrypt requests,
// rewrapping all fields under the active key after a rotation.
func (h *Handler) HandleReencrypt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, err := id.ParseOwnerID(chi.URLParam(r, "ownerID"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	if err := h.service.Reencrypt(ctx, ownerID); err != nil {
		h.writeServiceError(ctx, w, "re-encryption failed", ownerID, err)
		return
	}

	h.logger.InfoContext(ctx, "profile re-encrypted", "owner_id", ownerID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, ownerID id.OwnerID, err error) {
	if errors.Is(err, sentinel.ErrNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "not_found", "no protected profile for owner")
		return
	}
	h.logger.ErrorContext(ctx, msg, "owner_id", ownerID, "error", err)
	httputil.WriteError(w, http.StatusInternalServerError, "internal", "")
}
