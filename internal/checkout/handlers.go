package checkout

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/noah-isme/backend-kasir/internal/cart"
	"github.com/noah-isme/backend-kasir/internal/common"
)

// Handler wires checkout to HTTP.
type Handler struct {
	Svc *Service
}

// Finalize turns a cart into a sale and returns the receipt.
func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if strings.TrimSpace(req.CartID) == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "cartId is required", nil)
		return
	}
	result, err := h.Svc.Finalize(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": result})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrCartNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusBadRequest, "EMPTY_CART", "cart has no items", nil)
	case errors.Is(err, ErrMissingCustomer):
		common.JSONError(w, http.StatusBadRequest, "MISSING_CUSTOMER", "credit sale requires a customer", nil)
	case errors.Is(err, ErrInvalidPayment):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payment method", nil)
	case errors.Is(err, ErrStockConflict):
		common.JSONError(w, http.StatusConflict, "INSUFFICIENT_STOCK", "stock changed during checkout", nil)
	default:
		common.RenderError(w, err)
	}
}
