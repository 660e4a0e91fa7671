package sale

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/store"
)

// Handler wires the sale service to HTTP.
type Handler struct {
	Svc *Service
}

// Routes mounts the sale endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

// List returns sales filtered by optional from/to (unix millis), customerId,
// and method query parameters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "sale service not configured", nil)
		return
	}
	params := ListParams{
		CustomerID: r.URL.Query().Get("customerId"),
		Method:     r.URL.Query().Get("method"),
	}
	params.From, _ = strconv.ParseInt(r.URL.Query().Get("from"), 10, 64)
	params.To, _ = strconv.ParseInt(r.URL.Query().Get("to"), 10, 64)
	sales, err := h.Svc.List(r.Context(), params)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	page, perPage := common.ParsePagination(r, 50)
	common.JSON(w, http.StatusOK, map[string]any{
		"data": common.Paginate(sales, page, perPage),
		"meta": common.Pagination{Page: page, PerPage: perPage, TotalItems: len(sales)},
	})
}

// Get returns a single sale.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sl, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "sale not found", nil)
			return
		}
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sl})
}
