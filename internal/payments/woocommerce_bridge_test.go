package payments

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/noodklaar/storefront/internal/commerce"
)

type stubGateway struct {
	getFn    func(ctx context.Context, id int64) (commerce.Order, error)
	updateFn func(ctx context.Context, id int64, payload commerce.OrderUpdate) (commerce.Order, error)
}

func (s *stubGateway) GetOrder(ctx context.Context, id int64) (commerce.Order, error) {
	if s.getFn == nil {
		return commerce.Order{}, errors.New("unexpected GetOrder call")
	}
	return s.getFn(ctx, id)
}

func (s *stubGateway) UpdateOrder(ctx context.Context, id int64, payload commerce.OrderUpdate) (commerce.Order, error) {
	if s.updateFn == nil {
		return commerce.Order{}, errors.New("unexpected UpdateOrder call")
	}
	return s.updateFn(ctx, id, payload)
}

func TestParseMethodFallsBackToCard(t *testing.T) {
	cases := map[string]Method{
		"ideal":      MethodIDeal,
		"IDEAL":      MethodIDeal,
		"klarna":     MethodKlarna,
		"bancontact": MethodBancontact,
		"card":       MethodCard,
		"paypal":     MethodCard,
		"":           MethodCard,
	}
	for raw, want := range cases {
		if got := ParseMethod(raw); got != want {
			t.Errorf("ParseMethod(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestMethodBackendMapping(t *testing.T) {
	cases := []struct {
		method  Method
		backend string
		subtype string
		title   string
	}{
		{MethodCard, "woocommerce_payments", "", "Card Payment"},
		{MethodIDeal, "woocommerce_payments", "ideal", "iDEAL"},
		{MethodKlarna, "klarna_payments", "", "Klarna"},
		{MethodBancontact, "woocommerce_payments", "bancontact", "Bancontact"},
	}
	for _, tc := range cases {
		if got := tc.method.BackendID(); got != tc.backend {
			t.Errorf("%s BackendID = %q, want %q", tc.method, got, tc.backend)
		}
		if got := tc.method.BackendSubtype(); got != tc.subtype {
			t.Errorf("%s BackendSubtype = %q, want %q", tc.method, got, tc.subtype)
		}
		if got := tc.method.Title(); got != tc.title {
			t.Errorf("%s Title = %q, want %q", tc.method, got, tc.title)
		}
	}
}

func TestRedirectBuildsOrderPayURL(t *testing.T) {
	var recorded commerce.OrderUpdate
	gateway := &stubGateway{
		updateFn: func(_ context.Context, id int64, payload commerce.OrderUpdate) (commerce.Order, error) {
			recorded = payload
			return commerce.Order{ID: id}, nil
		},
	}
	bridge, err := NewWooCommerceBridge(WooCommerceBridgeDeps{
		Gateway: gateway,
		BaseURL: "https://shop.example",
		Mode:    ModeRedirect,
	})
	if err != nil {
		t.Fatalf("NewWooCommerceBridge returned error: %v", err)
	}

	instr, err := bridge.Start(context.Background(), StartRequest{
		OrderID:  1001,
		OrderKey: "wc_order_abc",
		Method:   MethodIDeal,
	})
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if instr.Kind != InstructionRedirect {
		t.Fatalf("expected redirect instruction, got %q", instr.Kind)
	}
	want := "https://shop.example/checkout/order-pay/1001/?pay_for_order=true&key=wc_order_abc&payment_method=woocommerce_payments&payment_method_type=ideal"
	if instr.RedirectURL != want {
		t.Fatalf("unexpected redirect url\n got %s\nwant %s", instr.RedirectURL, want)
	}
	if recorded.PaymentMethod != "woocommerce_payments" || recorded.PaymentMethodTitle != "iDEAL" {
		t.Fatalf("unexpected order update %+v", recorded)
	}
	if recorded.SetPaid {
		t.Fatal("redirect must not mark the order paid")
	}
}

func TestRedirectFetchesOrderKeyWhenMissing(t *testing.T) {
	gateway := &stubGateway{
		getFn: func(_ context.Context, id int64) (commerce.Order, error) {
			return commerce.Order{ID: id, OrderKey: "wc_order_xyz"}, nil
		},
		updateFn: func(_ context.Context, id int64, _ commerce.OrderUpdate) (commerce.Order, error) {
			return commerce.Order{ID: id}, nil
		},
	}
	bridge, err := NewWooCommerceBridge(WooCommerceBridgeDeps{Gateway: gateway, BaseURL: "https://shop.example"})
	if err != nil {
		t.Fatalf("NewWooCommerceBridge returned error: %v", err)
	}

	instr, err := bridge.Start(context.Background(), StartRequest{OrderID: 7, Method: MethodKlarna})
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if !strings.Contains(instr.RedirectURL, "key=wc_order_xyz") {
		t.Fatalf("redirect url missing fetched order key: %s", instr.RedirectURL)
	}
	if !strings.Contains(instr.RedirectURL, "payment_method=klarna_payments") {
		t.Fatalf("redirect url missing klarna gateway: %s", instr.RedirectURL)
	}
}

func TestSimulateSettlesOrder(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var recorded commerce.OrderUpdate
	gateway := &stubGateway{
		updateFn: func(_ context.Context, id int64, payload commerce.OrderUpdate) (commerce.Order, error) {
			recorded = payload
			return commerce.Order{ID: id, Status: payload.Status}, nil
		},
	}
	bridge, err := NewWooCommerceBridge(WooCommerceBridgeDeps{
		Gateway: gateway,
		BaseURL: "https://shop.example",
		Mode:    ModeSimulate,
		Now:     func() time.Time { return fixed },
	})
	if err != nil {
		t.Fatalf("NewWooCommerceBridge returned error: %v", err)
	}

	instr, err := bridge.Start(context.Background(), StartRequest{OrderID: 1001, Method: MethodCard})
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if instr.Kind != InstructionCompleted {
		t.Fatalf("expected completed instruction, got %q", instr.Kind)
	}
	wantTx := "test_" + "1772366400000" + "_1001"
	if instr.Receipt.TransactionID != wantTx {
		t.Fatalf("transaction id = %q, want %q", instr.Receipt.TransactionID, wantTx)
	}
	if !recorded.SetPaid || recorded.Status != "processing" {
		t.Fatalf("unexpected settlement update %+v", recorded)
	}
}

func TestSimulateFailureWrapsError(t *testing.T) {
	gateway := &stubGateway{
		updateFn: func(context.Context, int64, commerce.OrderUpdate) (commerce.Order, error) {
			return commerce.Order{}, errors.New("gateway down")
		},
	}
	bridge, err := NewWooCommerceBridge(WooCommerceBridgeDeps{Gateway: gateway, BaseURL: "https://shop.example", Mode: ModeSimulate})
	if err != nil {
		t.Fatalf("NewWooCommerceBridge returned error: %v", err)
	}

	_, err = bridge.Start(context.Background(), StartRequest{OrderID: 5, Method: MethodCard})
	var payErr *Error
	if !errors.As(err, &payErr) {
		t.Fatalf("expected payments.Error, got %v", err)
	}
	if payErr.OrderID != 5 {
		t.Fatalf("unexpected order id %d", payErr.OrderID)
	}
}
