// Package handler wires the trust endpoints to the trust service. Handlers
// stay thin: decode, validate, delegate, translate errors.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"trustgraph/internal/trust/models"
	"trustgraph/internal/trust/service"
	"trustgraph/pkg/apperrors"
	"trustgraph/pkg/platform/httputil"
)

// Service defines the trust operations the handlers expose.
type Service interface {
	RegisterIdentity(ctx context.Context, in models.CreateIdentityInput) (*models.Identity, error)
	GetIdentity(ctx context.Context, address string) (*models.Identity, error)
	ListIdentities(ctx context.Context) ([]*models.Identity, error)
	UpdateDisplayName(ctx context.Context, address string, displayName *string) (*models.Identity, error)
	RemoveIdentity(ctx context.Context, address string) error

	PostBond(ctx context.Context, in models.CreateBondInput) (*models.Bond, error)
	GetBond(ctx context.Context, id int64) (*models.Bond, error)
	ListBondsByIdentity(ctx context.Context, address string) ([]*models.Bond, error)
	ReleaseBond(ctx context.Context, id int64) (*models.Bond, error)
	SlashBond(ctx context.Context, id int64, slashAmount, reason string) (*models.SlashEvent, error)
	RemoveBond(ctx context.Context, id int64) error
	ListSlashEvents(ctx context.Context, bondID int64) ([]*models.SlashEvent, error)
	TotalSlashed(ctx context.Context, bondID int64) (string, error)

	Attest(ctx context.Context, in models.CreateAttestationInput) (*models.Attestation, error)
	ListAttestationsByBond(ctx context.Context, bondID int64) ([]*models.Attestation, error)
	ListAttestationsBySubject(ctx context.Context, address string) ([]*models.Attestation, error)
	ReviseAttestation(ctx context.Context, id int64, score int) (*models.Attestation, error)
	RemoveAttestation(ctx context.Context, id int64) error

	RecordScore(ctx context.Context, in models.CreateScoreEntryInput) (*models.ScoreHistoryEntry, error)
	ScoreHistory(ctx context.Context, address string) ([]*models.ScoreHistoryEntry, error)
	Profile(ctx context.Context, address string) (*service.TrustProfile, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterTrust mounts the read-heavy identity surface, typically under
// /api/trust.
func (h *Handler) RegisterTrust(r chi.Router) {
	r.Post("/identities", h.handleRegisterIdentity)
	r.Get("/identities", h.handleListIdentities)
	r.Get("/identities/{address}", h.handleGetIdentity)
	r.Patch("/identities/{address}", h.handleUpdateDisplayName)
	r.Delete("/identities/{address}", h.handleRemoveIdentity)
	r.Get("/identities/{address}/bonds", h.handleListBonds)
	r.Get("/identities/{address}/attestations", h.handleListAttestationsBySubject)
	r.Get("/identities/{address}/score-history", h.handleScoreHistory)
	r.Get("/identities/{address}/profile", h.handleProfile)
	r.Post("/scores", h.handleRecordScore)
}

// RegisterBond mounts the bond and attestation surface, typically under
// /api/bond.
func (h *Handler) RegisterBond(r chi.Router) {
	r.Post("/", h.handlePostBond)
	r.Get("/{id}", h.handleGetBond)
	r.Delete("/{id}", h.handleRemoveBond)
	r.Post("/{id}/release", h.handleReleaseBond)
	r.Post("/{id}/slash", h.handleSlashBond)
	r.Get("/{id}/slash-events", h.handleListSlashEvents)
	r.Get("/{id}/total-slashed", h.handleTotalSlashed)
	r.Post("/{id}/attestations", h.handleAttest)
	r.Get("/{id}/attestations", h.handleListAttestationsByBond)
	r.Patch("/attestations/{id}", h.handleReviseAttestation)
	r.Delete("/attestations/{id}", h.handleRemoveAttestation)
}

func (h *Handler) handleRegisterIdentity(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeAndValidate[createIdentityRequest](w, r)
	if !ok {
		return
	}

	identity, err := h.service.RegisterIdentity(r.Context(), req.toInput())
	if err != nil {
		h.writeError(w, r, "register identity", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, identity)
}

func (h *Handler) handleListIdentities(w http.ResponseWriter, r *http.Request) {
	identities, err := h.service.ListIdentities(r.Context())
	if err != nil {
		h.writeError(w, r, "list identities", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, identities)
}

func (h *Handler) handleGetIdentity(w http.ResponseWriter, r *http.Request) {
	identity, err := h.service.GetIdentity(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		h.writeError(w, r, "get identity", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, identity)
}

func (h *Handler) handleUpdateDisplayName(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeAndValidate[updateDisplayNameRequest](w, r)
	if !ok {
		return
	}

	identity, err := h.service.UpdateDisplayName(r.Context(), chi.URLParam(r, "address"), req.DisplayName)
	if err != nil {
		h.writeError(w, r, "update display name", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, identity)
}

func (h *Handler) handleRemoveIdentity(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemoveIdentity(r.Context(), chi.URLParam(r, "address")); err != nil {
		h.writeError(w, r, "remove identity", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListBonds(w http.ResponseWriter, r *http.Request) {
	bonds, err := h.service.ListBondsByIdentity(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		h.writeError(w, r, "list bonds", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, bonds)
}

func (h *Handler) handleListAttestationsBySubject(w http.ResponseWriter, r *http.Request) {
	attestations, err := h.service.ListAttestationsBySubject(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		h.writeError(w, r, "list attestations by subject", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, attestations)
}

func (h *Handler) handleScoreHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.ScoreHistory(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		h.writeError(w, r, "score history", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, history)
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.Profile(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		h.writeError(w, r, "trust profile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleRecordScore(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeAndValidate[recordScoreRequest](w, r)
	if !ok {
		return
	}

	entry, err := h.service.RecordScore(r.Context(), req.toInput())
	if err != nil {
		h.writeError(w, r, "record score", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, entry)
}

func (h *Handler) handlePostBond(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeAndValidate[createBondRequest](w, r)
	if !ok {
		return
	}

	bond, err := h.service.PostBond(r.Context(), req.toInput())
	if err != nil {
		h.writeError(w, r, "post bond", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, bond)
}

func (h *Handler) handleGetBond(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	bond, err := h.service.GetBond(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "get bond", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, bond)
}

func (h *Handler) handleRemoveBond(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.RemoveBond(r.Context(), id); err != nil {
		h.writeError(w, r, "remove bond", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleReleaseBond(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	bond, err := h.service.ReleaseBond(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "release bond", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, bond)
}

func (h *Handler) handleSlashBond(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndValidate[slashBondRequest](w, r)
	if !ok {
		return
	}

	event, err := h.service.SlashBond(r.Context(), id, req.SlashAmount, req.Reason)
	if err != nil {
		h.writeError(w, r, "slash bond", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, event)
}

func (h *Handler) handleListSlashEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	events, err := h.service.ListSlashEvents(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "list slash events", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, events)
}

type totalSlashedResponse struct {
	BondID       int64  `json:"bondId"`
	TotalSlashed string `json:"totalSlashed"`
}

func (h *Handler) handleTotalSlashed(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	total, err := h.service.TotalSlashed(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "total slashed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, totalSlashedResponse{BondID: id, TotalSlashed: total})
}

func (h *Handler) handleAttest(w http.ResponseWriter, r *http.Request) {
	bondID, ok := pathID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndValidate[createAttestationRequest](w, r)
	if !ok {
		return
	}

	attestation, err := h.service.Attest(r.Context(), models.CreateAttestationInput{
		BondID:          bondID,
		AttesterAddress: req.AttesterAddress,
		SubjectAddress:  req.SubjectAddress,
		Score:           req.Score,
		Note:            req.Note,
	})
	if err != nil {
		h.writeError(w, r, "attest", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, attestation)
}

func (h *Handler) handleListAttestationsByBond(w http.ResponseWriter, r *http.Request) {
	bondID, ok := pathID(w, r)
	if !ok {
		return
	}

	attestations, err := h.service.ListAttestationsByBond(r.Context(), bondID)
	if err != nil {
		h.writeError(w, r, "list attestations by bond", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, attestations)
}

func (h *Handler) handleReviseAttestation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndValidate[reviseAttestationRequest](w, r)
	if !ok {
		return
	}

	attestation, err := h.service.ReviseAttestation(r.Context(), id, req.Score)
	if err != nil {
		h.writeError(w, r, "revise attestation", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, attestation)
}

func (h *Handler) handleRemoveAttestation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.RemoveAttestation(r.Context(), id); err != nil {
		h.writeError(w, r, "remove attestation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pathID parses the {id} route parameter; on failure the 400 is written.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.WriteError(w, apperrors.New(apperrors.CodeInvalidInput, "id must be a positive integer"))
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if code := apperrors.CodeOf(err); code == apperrors.CodeInternal {
		h.logger.ErrorContext(r.Context(), op+" failed",
			"request_id", chimw.GetReqID(r.Context()),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
