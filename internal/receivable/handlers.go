package receivable

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/store"
)

// Handler wires the receivable service to HTTP.
type Handler struct {
	Svc *Service
}

// Routes mounts the receivable endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/summary", h.Summary)
	r.Post("/{id}/pay", h.MarkPaid)
}

// List returns credit sales filtered by optional status and customerId.
// Passing overdue=true keeps only unpaid receivables past their due date.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "receivable service not configured", nil)
		return
	}
	params := ListParams{
		Status:     r.URL.Query().Get("status"),
		CustomerID: r.URL.Query().Get("customerId"),
	}
	if r.URL.Query().Get("overdue") == "true" {
		params.OverdueAt = h.Svc.Now().UnixMilli()
	}
	receivables, err := h.Svc.List(r.Context(), params)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": receivables})
}

// Summary returns outstanding and overdue totals.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Svc.Outstanding(r.Context())
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": summary})
}

// MarkPaid settles a receivable.
func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	sl, err := h.Svc.MarkPaid(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "sale not found", nil)
		case errors.Is(err, ErrNotCredit):
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "sale is not a credit sale", nil)
		default:
			common.RenderError(w, err)
		}
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sl})
}
