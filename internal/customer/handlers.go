package customer

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/model"
	"github.com/noah-isme/backend-kasir/internal/store"
)

// Handler wires the customer service to HTTP.
type Handler struct {
	Svc *Service
}

// Routes mounts the customer endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Put("/{id}/prices/{productID}", h.PutPriceOverride)
	r.Delete("/{id}/prices/{productID}", h.RemovePriceOverride)
}

// List returns all customers.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "customer service not configured", nil)
		return
	}
	customers, err := h.Svc.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": customers})
}

// Get returns a single customer.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	customer, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": customer})
}

// Create stores a new customer.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var payload model.Customer
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	customer, err := h.Svc.Create(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": customer})
}

// Update replaces a customer.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var payload model.Customer
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	customer, err := h.Svc.Update(r.Context(), chi.URLParam(r, "id"), payload)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": customer})
}

// Delete removes a customer.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"deleted": true}})
}

// PutPriceOverride sets a per-product price for a customer.
func (h *Handler) PutPriceOverride(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Price int64 `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	customer, err := h.Svc.PutPriceOverride(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "productID"), payload.Price)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": customer})
}

// RemovePriceOverride drops a per-product price for a customer.
func (h *Handler) RemovePriceOverride(w http.ResponseWriter, r *http.Request) {
	customer, err := h.Svc.RemovePriceOverride(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "productID"))
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": customer})
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "customer not found", nil)
		return
	}
	common.RenderError(w, err)
}
