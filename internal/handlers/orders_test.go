package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/noodklaar/storefront/internal/services"
)

func ordersRouter(svc services.CheckoutService) chi.Router {
	r := chi.NewRouter()
	NewOrderHandlers(svc).Routes(r)
	return r
}

func TestOrderStatusReturnsOrder(t *testing.T) {
	svc := &stubCheckoutService{
		orderStatusFn: func(_ context.Context, _ string, orderID int64, orderKey string) (services.OrderStatusResult, error) {
			if orderID != 1001 || orderKey != "wc_order_abc" {
				t.Fatalf("unexpected lookup: order %d key %q", orderID, orderKey)
			}
			return services.OrderStatusResult{
				OrderID:       1001,
				Status:        "processing",
				Paid:          true,
				Total:         decimal.RequireFromString("60.50"),
				Currency:      "EUR",
				PaymentMethod: "woocommerce_payments",
			}, nil
		},
	}

	rr := httptest.NewRecorder()
	ordersRouter(svc).ServeHTTP(rr, sessionRequest(http.MethodGet, "/1001?key=wc_order_abc", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Order struct {
			ID     int64  `json:"id"`
			Status string `json:"status"`
			Paid   bool   `json:"paid"`
			Total  string `json:"total"`
		} `json:"order"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Order.ID != 1001 || !body.Order.Paid || body.Order.Total != "60.50" {
		t.Fatalf("unexpected order payload: %+v", body.Order)
	}
}

func TestOrderStatusKeyMismatchReturns403(t *testing.T) {
	svc := &stubCheckoutService{
		orderStatusFn: func(context.Context, string, int64, string) (services.OrderStatusResult, error) {
			return services.OrderStatusResult{}, services.ErrOrderKeyMismatch
		},
	}

	rr := httptest.NewRecorder()
	ordersRouter(svc).ServeHTTP(rr, sessionRequest(http.MethodGet, "/1001?key=wrong", nil))

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestOrderStatusRequiresKey(t *testing.T) {
	svc := &stubCheckoutService{}

	rr := httptest.NewRecorder()
	ordersRouter(svc).ServeHTTP(rr, sessionRequest(http.MethodGet, "/1001", nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestOrderStatusInvalidIDReturns400(t *testing.T) {
	svc := &stubCheckoutService{}

	rr := httptest.NewRecorder()
	ordersRouter(svc).ServeHTTP(rr, sessionRequest(http.MethodGet, "/abc?key=wc_order_abc", nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}
