// Package handler exposes the admin surface of the quota service: key
// registration, revocation, and ledger reset.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"trustgraph/internal/ratelimit/models"
	"trustgraph/pkg/apperrors"
	"trustgraph/pkg/platform/httputil"
)

// Service defines the key-management operations the handlers expose.
type Service interface {
	RegisterKey(ctx context.Context, in models.RegisterKeyInput) (*models.APIKeyRecord, error)
	RevokeKey(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the admin endpoints, typically under /api/admin.
func (h *Handler) Register(r chi.Router) {
	r.Post("/keys", h.handleRegisterKey)
	r.Delete("/keys/{key}", h.handleRevokeKey)
	r.Post("/quota/reset", h.handleReset)
}

type registerKeyRequest struct {
	Key           string     `json:"key" validate:"omitempty,min=8"`
	Tier          string     `json:"tier" validate:"required,oneof=FREE PRO ENTERPRISE"`
	ExpiresAt     *time.Time `json:"expiresAt"`
	AdminOverride bool       `json:"adminOverride"`
}

func (h *Handler) handleRegisterKey(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeAndValidate[registerKeyRequest](w, r)
	if !ok {
		return
	}

	record, err := h.service.RegisterKey(r.Context(), models.RegisterKeyInput{
		Key:           req.Key,
		Tier:          models.Tier(req.Tier),
		ExpiresAt:     req.ExpiresAt,
		AdminOverride: req.AdminOverride,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleRevokeKey(w http.ResponseWriter, r *http.Request) {
	removed, err := h.service.RevokeKey(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !removed {
		httputil.WriteError(w, apperrors.New(apperrors.CodeNotFound, "api key not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.Reset(ctx); err != nil {
		h.logger.ErrorContext(ctx, "quota reset failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "quota ledger and key registry reset")
	w.WriteHeader(http.StatusNoContent)
}
