package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noodklaar/storefront/internal/commerce"
	"github.com/noodklaar/storefront/internal/platform/httpx"
	"github.com/noodklaar/storefront/internal/services"
)

// OrderHandlers exposes the order status check endpoint.
type OrderHandlers struct {
	checkout services.CheckoutService
}

// NewOrderHandlers constructs handlers over the checkout service.
func NewOrderHandlers(checkout services.CheckoutService) *OrderHandlers {
	return &OrderHandlers{checkout: checkout}
}

// Routes wires the /orders endpoints onto the provided router.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/{orderID}", h.orderStatus)
}

func (h *OrderHandlers) orderStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}

	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || orderID <= 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "orderID must be a positive integer", http.StatusBadRequest))
		return
	}
	orderKey := strings.TrimSpace(r.URL.Query().Get("key"))
	if orderKey == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "key query parameter is required", http.StatusBadRequest))
		return
	}

	result, svcErr := h.checkout.OrderStatus(ctx, sessionID, orderID, orderKey)
	if svcErr != nil {
		h.writeOrderError(ctx, w, svcErr)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"order": map[string]any{
			"id":             result.OrderID,
			"status":         result.Status,
			"paid":           result.Paid,
			"total":          money(result.Total),
			"currency":       result.Currency,
			"payment_method": result.PaymentMethod,
		},
	})
}

func (h *OrderHandlers) writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	var statusErr *commerce.StatusError
	switch {
	case errors.Is(err, services.ErrOrderKeyMismatch):
		httpx.WriteError(ctx, w, httpx.NewError("order_key_mismatch", "order key does not match", http.StatusForbidden))
	case errors.As(err, &statusErr) && statusErr.IsNotFound():
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "failed to fetch order status", http.StatusBadGateway))
	}
}
