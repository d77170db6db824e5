package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noodklaar/storefront/internal/platform/httpx"
	"github.com/noodklaar/storefront/internal/platform/i18n"
	"github.com/noodklaar/storefront/internal/services"
)

const maxCartBodySize = 16 * 1024

// CartHandlers exposes the per-session cart endpoints.
type CartHandlers struct {
	carts     services.CartService
	localizer *i18n.Localizer
}

// NewCartHandlers constructs handlers over the cart service.
func NewCartHandlers(carts services.CartService, localizer *i18n.Localizer) *CartHandlers {
	if localizer == nil {
		localizer = i18n.NewLocalizer()
	}
	return &CartHandlers{carts: carts, localizer: localizer}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getCart)
	r.Delete("/", h.clearCart)
	r.Post("/items", h.addItem)
	r.Patch("/items/{productID}", h.setQuantity)
	r.Delete("/items/{productID}", h.removeItem)
	r.Post("/coupon", h.applyCoupon)
	r.Delete("/coupon", h.removeCoupon)
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}

	cart, breakdown, err := h.carts.Quote(ctx, sessionID, shippingCountry(r))
	if err != nil {
		h.writeCartError(ctx, w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"cart": buildCartPayload(cart, &breakdown)})
}

type addItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxCartBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req addItemRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}
	if req.ProductID <= 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product_id must be a positive integer", http.StatusBadRequest))
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	cart, err := h.carts.AddItem(ctx, sessionID, req.ProductID, req.Quantity)
	if err != nil {
		h.writeCartError(ctx, w, r, err)
		return
	}

	// open_cart tells the page to slide the cart drawer open.
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"cart":      buildCartPayload(cart, nil),
		"open_cart": true,
	})
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandlers) setQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	productID, perr := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if perr != nil || productID <= 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "productID must be a positive integer", http.StatusBadRequest))
		return
	}

	body, err := readLimitedBody(r, maxCartBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req setQuantityRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	cart, err := h.carts.SetQuantity(ctx, sessionID, productID, req.Quantity)
	if err != nil {
		h.writeCartError(ctx, w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"cart": buildCartPayload(cart, nil)})
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}
	productID, perr := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if perr != nil || productID <= 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "productID must be a positive integer", http.StatusBadRequest))
		return
	}

	cart, err := h.carts.RemoveItem(ctx, sessionID, productID)
	if err != nil {
		h.writeCartError(ctx, w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"cart": buildCartPayload(cart, nil)})
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.Clear(ctx, sessionID)
	if err != nil {
		h.writeCartError(ctx, w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"cart": buildCartPayload(cart, nil)})
}

type applyCouponRequest struct {
	Code string `json:"code"`
}

func (h *CartHandlers) applyCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxCartBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req applyCouponRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	cart, err := h.carts.ApplyCoupon(ctx, sessionID, req.Code)
	if err != nil {
		h.writeCartError(ctx, w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"cart": buildCartPayload(cart, nil)})
}

func (h *CartHandlers) removeCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.RemoveCoupon(ctx, sessionID)
	if err != nil {
		h.writeCartError(ctx, w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"cart": buildCartPayload(cart, nil)})
}

func (h *CartHandlers) writeCartError(ctx context.Context, w http.ResponseWriter, r *http.Request, err error) {
	var couponErr *services.CouponError
	switch {
	case errors.As(err, &couponErr):
		locale := h.localizer.Match(r.Header.Get("Accept-Language"))
		message := h.localizer.CouponMessage(locale, string(couponErr.Reason), couponErr.Bound)
		httpx.WriteError(ctx, w, httpx.
			NewError("coupon_rejected", message, http.StatusUnprocessableEntity).
			WithDetails(map[string]any{"reason": string(couponErr.Reason)}))
	case errors.Is(err, services.ErrCartInvalidQuantity):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quantity must be a positive integer", http.StatusBadRequest))
	case errors.Is(err, services.ErrCartProductUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrPricingInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_cart_state", "cart contains invalid pricing input", http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_error", "failed to process cart request", http.StatusInternalServerError))
	}
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}
