package settings

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/model"
)

// Handler wires the settings service to HTTP.
type Handler struct {
	Svc *Service
}

// Routes mounts the settings endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/tax", h.GetTax)
	r.Put("/tax", h.SetTax)
	r.Get("/store", h.GetProfile)
	r.Put("/store", h.SetProfile)
}

// GetTax returns the tax rate.
func (h *Handler) GetTax(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "settings service not configured", nil)
		return
	}
	tax, err := h.Svc.Tax(r.Context())
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": tax})
}

// SetTax stores the tax rate.
func (h *Handler) SetTax(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Rate float64 `json:"rate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	tax, err := h.Svc.SetTax(r.Context(), payload.Rate)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": tax})
}

// GetProfile returns the store profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Svc.Profile(r.Context())
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": profile})
}

// SetProfile stores the store profile.
func (h *Handler) SetProfile(w http.ResponseWriter, r *http.Request) {
	var payload model.StoreProfile
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	profile, err := h.Svc.SetProfile(r.Context(), payload)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": profile})
}
