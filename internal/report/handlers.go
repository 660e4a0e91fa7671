package report

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-kasir/internal/common"
)

// Handler wires the report service to HTTP.
type Handler struct {
	Svc *Service
}

// Routes mounts the report endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/summary", h.Summary)
	r.Get("/top-products", h.TopProducts)
	r.Get("/low-stock", h.LowStock)
	r.Get("/daily", h.Daily)
}

// Summary aggregates sales between from and to (unix millis).
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "report service not configured", nil)
		return
	}
	from, _ := strconv.ParseInt(r.URL.Query().Get("from"), 10, 64)
	to, _ := strconv.ParseInt(r.URL.Query().Get("to"), 10, 64)
	summary, err := h.Svc.Summarize(r.Context(), from, to)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": summary})
}

// TopProducts ranks best sellers.
func (h *Handler) TopProducts(w http.ResponseWriter, r *http.Request) {
	from, _ := strconv.ParseInt(r.URL.Query().Get("from"), 10, 64)
	to, _ := strconv.ParseInt(r.URL.Query().Get("to"), 10, 64)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	top, err := h.Svc.TopProducts(r.Context(), from, to, limit)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": top})
}

// LowStock lists products at or below their minimum stock.
func (h *Handler) LowStock(w http.ResponseWriter, r *http.Request) {
	low, err := h.Svc.LowStock(r.Context())
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": low})
}

// Daily returns a revenue series over the trailing days window.
func (h *Handler) Daily(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	points, err := h.Svc.Daily(r.Context(), days)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": points})
}
