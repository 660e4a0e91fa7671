package purchase

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/model"
	"github.com/noah-isme/backend-kasir/internal/store"
)

// Handler wires the purchase service to HTTP.
type Handler struct {
	Svc *Service
}

// Routes mounts the purchase-order endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/ship", h.MarkShipped)
	r.Post("/{id}/receive", h.MarkReceived)
	r.Post("/{id}/cancel", h.Cancel)
}

// List returns purchase orders, optionally filtered by status.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "purchase service not configured", nil)
		return
	}
	orders, err := h.Svc.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": orders})
}

// Get returns a single purchase order.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	po, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": po})
}

// Create stores a new pending purchase order.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var payload model.PurchaseOrder
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	po, err := h.Svc.Create(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": po})
}

// MarkShipped transitions an order to shipped.
func (h *Handler) MarkShipped(w http.ResponseWriter, r *http.Request) {
	po, err := h.Svc.MarkShipped(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": po})
}

// MarkReceived transitions an order to received and restocks.
func (h *Handler) MarkReceived(w http.ResponseWriter, r *http.Request) {
	po, err := h.Svc.MarkReceived(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": po})
}

// Cancel transitions an order to cancelled.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	po, err := h.Svc.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": po})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "purchase order not found", nil)
	case errors.Is(err, ErrInvalidTransition):
		common.JSONError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	default:
		common.RenderError(w, err)
	}
}
