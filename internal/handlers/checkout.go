package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noodklaar/storefront/internal/domain"
	"github.com/noodklaar/storefront/internal/payments"
	"github.com/noodklaar/storefront/internal/platform/httpx"
	"github.com/noodklaar/storefront/internal/platform/i18n"
	"github.com/noodklaar/storefront/internal/services"
)

const maxCheckoutBodySize = 32 * 1024

// CheckoutHandlers exposes the checkout handoff endpoints.
type CheckoutHandlers struct {
	checkout  services.CheckoutService
	localizer *i18n.Localizer
}

// NewCheckoutHandlers constructs handlers over the checkout service.
func NewCheckoutHandlers(checkout services.CheckoutService, localizer *i18n.Localizer) *CheckoutHandlers {
	if localizer == nil {
		localizer = i18n.NewLocalizer()
	}
	return &CheckoutHandlers{checkout: checkout, localizer: localizer}
}

// Routes wires the /checkout endpoints onto the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.state)
	r.Post("/begin", h.begin)
	r.Post("/order", h.placeOrder)
	r.Post("/payment", h.startPayment)
	r.Post("/return", h.returnToEditing)
}

func (h *CheckoutHandlers) state(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}

	state, err := h.checkout.State(ctx, sessionID)
	if err != nil {
		h.writeCheckoutError(ctx, w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"checkout": buildCheckoutPayload(state)})
}

type beginCheckoutRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2"`
	City      string `json:"city"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
}

func (req beginCheckoutRequest) missingFields() []string {
	var missing []string
	check := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	check("first_name", req.FirstName)
	check("last_name", req.LastName)
	check("email", req.Email)
	check("address_1", req.Address1)
	check("city", req.City)
	check("postcode", req.Postcode)
	check("country", req.Country)
	return missing
}

func (h *CheckoutHandlers) begin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxCheckoutBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req beginCheckoutRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}
	if missing := req.missingFields(); len(missing) > 0 {
		httpx.WriteError(ctx, w, httpx.
			NewError("invalid_request", "required checkout fields missing", http.StatusBadRequest).
			WithDetails(map[string]any{"missing": missing}))
		return
	}

	customer := domain.CustomerDetails{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     strings.TrimSpace(req.Email),
		Phone:     strings.TrimSpace(req.Phone),
		Address1:  strings.TrimSpace(req.Address1),
		Address2:  strings.TrimSpace(req.Address2),
		City:      strings.TrimSpace(req.City),
		Postcode:  strings.TrimSpace(req.Postcode),
		Country:   strings.ToUpper(strings.TrimSpace(req.Country)),
	}

	state, err := h.checkout.Begin(ctx, sessionID, customer)
	if err != nil {
		h.writeCheckoutError(ctx, w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"checkout": buildCheckoutPayload(state)})
}

func (h *CheckoutHandlers) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}

	state, err := h.checkout.PlaceOrder(ctx, sessionID)
	if err != nil {
		h.writeCheckoutError(ctx, w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"checkout": buildCheckoutPayload(state)})
}

type startPaymentRequest struct {
	Method string `json:"method"`
}

func (h *CheckoutHandlers) startPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxCheckoutBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req startPaymentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}
	method := payments.ParseMethod(req.Method)

	instruction, state, err := h.checkout.StartPayment(ctx, sessionID, method)
	if err != nil {
		h.writeCheckoutError(ctx, w, r, err)
		return
	}

	payload := map[string]any{
		"checkout": buildCheckoutPayload(state),
		"method":   string(instruction.Method),
	}
	switch instruction.Kind {
	case payments.InstructionRedirect:
		payload["redirect_url"] = instruction.RedirectURL
	case payments.InstructionCompleted:
		payload["receipt"] = map[string]any{
			"order_id":       instruction.Receipt.OrderID,
			"status":         instruction.Receipt.Status,
			"transaction_id": instruction.Receipt.TransactionID,
			"paid_at":        instruction.Receipt.PaidAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	httpx.WriteJSON(w, http.StatusOK, payload)
}

func (h *CheckoutHandlers) returnToEditing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := sessionFromRequest(w, r)
	if !ok {
		return
	}

	state, err := h.checkout.ReturnToEditing(ctx, sessionID)
	if err != nil {
		h.writeCheckoutError(ctx, w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"checkout": buildCheckoutPayload(state)})
}

func (h *CheckoutHandlers) writeCheckoutError(ctx context.Context, w http.ResponseWriter, r *http.Request, err error) {
	var paymentErr *payments.Error
	var illegal domain.ErrIllegalTransition
	switch {
	case errors.Is(err, services.ErrCheckoutEmptyCart):
		httpx.WriteError(ctx, w, httpx.NewError("cart_empty", "cannot start checkout with an empty cart", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutNotReady):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_not_ready", "no pending checkout for this session", http.StatusConflict))
	case errors.As(err, &illegal):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_state_conflict", illegal.Error(), http.StatusConflict))
	case errors.As(err, &paymentErr):
		locale := h.localizer.Match(r.Header.Get("Accept-Language"))
		httpx.WriteError(ctx, w, httpx.
			NewError("payment_failed", h.localizer.PaymentFailureMessage(locale), http.StatusBadGateway).
			WithDetails(map[string]any{"order_id": paymentErr.OrderID, "method": string(paymentErr.Method)}))
	case errors.Is(err, services.ErrPricingInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_cart_state", "cart contains invalid pricing input", http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("checkout_error", "failed to process checkout request", http.StatusInternalServerError))
	}
}

type checkoutPayload struct {
	Phase            string            `json:"phase"`
	PendingOrder     *pendingOrderDTO  `json:"pending_order,omitempty"`
	Totals           *breakdownPayload `json:"totals,omitempty"`
	CompletedOrderID int64             `json:"completed_order_id,omitempty"`
	UpdatedAt        string            `json:"updated_at,omitempty"`
}

type pendingOrderDTO struct {
	OrderID  int64  `json:"order_id"`
	OrderKey string `json:"order_key"`
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

func buildCheckoutPayload(state domain.CheckoutState) checkoutPayload {
	phase := state.Phase
	if phase == "" {
		phase = domain.PhaseEditing
	}
	payload := checkoutPayload{
		Phase:            string(phase),
		CompletedOrderID: state.CompletedOrderID,
	}
	if state.PendingOrder != nil {
		payload.PendingOrder = &pendingOrderDTO{
			OrderID:  state.PendingOrder.OrderID,
			OrderKey: state.PendingOrder.OrderKey,
			Total:    money(state.PendingOrder.Total),
			Currency: state.PendingOrder.Currency,
		}
	}
	if state.Snapshot != nil {
		payload.Totals = buildBreakdownPayload(state.Snapshot.Breakdown)
	}
	if !state.UpdatedAt.IsZero() {
		payload.UpdatedAt = state.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return payload
}
