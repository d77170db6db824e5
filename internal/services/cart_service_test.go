package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noodklaar/storefront/internal/commerce"
	domain "github.com/noodklaar/storefront/internal/domain"
	"github.com/noodklaar/storefront/internal/repositories/memory"
)

type stubProductSource struct {
	fn func(ctx context.Context, id int64) (commerce.Product, error)
}

func (s *stubProductSource) GetProduct(ctx context.Context, id int64) (commerce.Product, error) {
	return s.fn(ctx, id)
}

type stubCouponService struct {
	fn func(ctx context.Context, code string, subtotal decimal.Decimal) (domain.Coupon, error)
}

func (s *stubCouponService) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (domain.Coupon, error) {
	return s.fn(ctx, code, subtotal)
}

func defaultProductSource() *stubProductSource {
	return &stubProductSource{fn: func(_ context.Context, id int64) (commerce.Product, error) {
		return commerce.Product{
			ID:     id,
			Name:   "Mok",
			Price:  "12.50",
			Images: []commerce.Image{{Src: "https://cdn.example/mok.jpg"}},
		}, nil
	}}
}

func newTestCartService(t *testing.T, products ProductSource, coupons CouponService) CartService {
	t.Helper()
	if products == nil {
		products = defaultProductSource()
	}
	if coupons == nil {
		coupons = &stubCouponService{fn: func(_ context.Context, code string, _ decimal.Decimal) (domain.Coupon, error) {
			return domain.Coupon{Code: code, DiscountType: domain.DiscountPercent, Amount: decimal.NewFromInt(10)}, nil
		}}
	}
	engine, err := NewPricingEngine(PricingEngineDeps{
		VAT: ExclusiveVAT{Rate: decimal.RequireFromString("0.21")},
	})
	if err != nil {
		t.Fatalf("NewPricingEngine returned error: %v", err)
	}
	svc, err := NewCartService(CartServiceDeps{
		Carts:    memory.NewCartRepository(),
		Products: products,
		Coupons:  coupons,
		Pricing:  engine,
		Now:      func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewCartService returned error: %v", err)
	}
	return svc
}

func TestGetUnknownSessionReturnsEmptyCart(t *testing.T) {
	svc := newTestCartService(t, nil, nil)
	cart, err := svc.Get(context.Background(), "fresh")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if len(cart.Items) != 0 || cart.Coupon != nil {
		t.Fatalf("expected empty cart, got %+v", cart)
	}
	if cart.SessionID != "fresh" {
		t.Fatalf("unexpected session id %q", cart.SessionID)
	}
}

func TestAddItemAccumulatesQuantity(t *testing.T) {
	svc := newTestCartService(t, nil, nil)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "s1", 42, 2); err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}
	cart, err := svc.AddItem(ctx, "s1", 42, 3)
	if err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("expected one line, got %d", len(cart.Items))
	}
	if cart.Items[0].Quantity != 5 {
		t.Fatalf("quantity = %d, want 5", cart.Items[0].Quantity)
	}
	if cart.Items[0].Name != "Mok" || cart.Items[0].ImageURL == "" {
		t.Fatalf("product snapshot missing: %+v", cart.Items[0])
	}
}

func TestAddItemRejectsNonPositiveQuantity(t *testing.T) {
	svc := newTestCartService(t, nil, nil)
	if _, err := svc.AddItem(context.Background(), "s1", 42, 0); !errors.Is(err, ErrCartInvalidQuantity) {
		t.Fatalf("expected ErrCartInvalidQuantity, got %v", err)
	}
}

func TestAddItemUnknownProduct(t *testing.T) {
	products := &stubProductSource{fn: func(context.Context, int64) (commerce.Product, error) {
		return commerce.Product{}, errors.New("not found")
	}}
	svc := newTestCartService(t, products, nil)
	if _, err := svc.AddItem(context.Background(), "s1", 999, 1); !errors.Is(err, ErrCartProductUnavailable) {
		t.Fatalf("expected ErrCartProductUnavailable, got %v", err)
	}
}

func TestRemoveItemUndoesAdd(t *testing.T) {
	svc := newTestCartService(t, nil, nil)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "s1", 42, 1); err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}
	cart, err := svc.RemoveItem(ctx, "s1", 42)
	if err != nil {
		t.Fatalf("RemoveItem returned error: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("expected empty cart, got %d lines", len(cart.Items))
	}
}

func TestSetQuantityZeroRemovesLine(t *testing.T) {
	svc := newTestCartService(t, nil, nil)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "s1", 42, 3); err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}
	cart, err := svc.SetQuantity(ctx, "s1", 42, 0)
	if err != nil {
		t.Fatalf("SetQuantity returned error: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Fatalf("expected line removed, got %d lines", len(cart.Items))
	}
}

func TestSetQuantityReplacesQuantity(t *testing.T) {
	svc := newTestCartService(t, nil, nil)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "s1", 42, 3); err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}
	cart, err := svc.SetQuantity(ctx, "s1", 42, 7)
	if err != nil {
		t.Fatalf("SetQuantity returned error: %v", err)
	}
	if cart.Items[0].Quantity != 7 {
		t.Fatalf("quantity = %d, want 7", cart.Items[0].Quantity)
	}
}

func TestSetQuantityAbsentProductIsNoOp(t *testing.T) {
	svc := newTestCartService(t, nil, nil)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "s1", 42, 1); err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}
	cart, err := svc.SetQuantity(ctx, "s1", 999, 5)
	if err != nil {
		t.Fatalf("SetQuantity returned error: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].ProductID != 42 {
		t.Fatalf("unexpected cart %+v", cart.Items)
	}
}

func TestClearDropsItemsAndCoupon(t *testing.T) {
	svc := newTestCartService(t, nil, nil)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "s1", 42, 1); err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}
	if _, err := svc.ApplyCoupon(ctx, "s1", "SAVE10"); err != nil {
		t.Fatalf("ApplyCoupon returned error: %v", err)
	}
	cart, err := svc.Clear(ctx, "s1")
	if err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	if len(cart.Items) != 0 || cart.Coupon != nil {
		t.Fatalf("expected cleared cart, got %+v", cart)
	}
}

func TestApplyCouponPassesSubtotal(t *testing.T) {
	var seen decimal.Decimal
	coupons := &stubCouponService{fn: func(_ context.Context, code string, subtotal decimal.Decimal) (domain.Coupon, error) {
		seen = subtotal
		return domain.Coupon{Code: code, DiscountType: domain.DiscountPercent, Amount: decimal.NewFromInt(10)}, nil
	}}
	svc := newTestCartService(t, nil, coupons)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "s1", 42, 2); err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}
	cart, err := svc.ApplyCoupon(ctx, "s1", "SAVE10")
	if err != nil {
		t.Fatalf("ApplyCoupon returned error: %v", err)
	}
	if !seen.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("subtotal passed to validator = %s, want 25.00", seen.String())
	}
	if cart.Coupon == nil || cart.Coupon.Code != "SAVE10" {
		t.Fatalf("coupon not stored: %+v", cart.Coupon)
	}
}

func TestApplyCouponRejectionDoesNotTouchCart(t *testing.T) {
	coupons := &stubCouponService{fn: func(context.Context, string, decimal.Decimal) (domain.Coupon, error) {
		return domain.Coupon{}, &CouponError{Code: "NOPE", Reason: CouponReasonNotFound}
	}}
	svc := newTestCartService(t, nil, coupons)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "s1", 42, 1); err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}
	_, err := svc.ApplyCoupon(ctx, "s1", "NOPE")
	var couponErr *CouponError
	if !errors.As(err, &couponErr) {
		t.Fatalf("expected CouponError, got %v", err)
	}
	cart, err := svc.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if cart.Coupon != nil {
		t.Fatalf("rejected coupon must not be stored: %+v", cart.Coupon)
	}
}

func TestRemoveCouponKeepsItems(t *testing.T) {
	svc := newTestCartService(t, nil, nil)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "s1", 42, 2); err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}
	if _, err := svc.ApplyCoupon(ctx, "s1", "SAVE10"); err != nil {
		t.Fatalf("ApplyCoupon returned error: %v", err)
	}
	cart, err := svc.RemoveCoupon(ctx, "s1")
	if err != nil {
		t.Fatalf("RemoveCoupon returned error: %v", err)
	}
	if cart.Coupon != nil {
		t.Fatal("coupon still attached")
	}
	if len(cart.Items) != 1 {
		t.Fatalf("items lost on coupon removal: %+v", cart.Items)
	}
}

func TestQuoteUsesStoredCoupon(t *testing.T) {
	svc := newTestCartService(t, nil, nil)
	ctx := context.Background()

	if _, err := svc.AddItem(ctx, "s1", 42, 4); err != nil {
		t.Fatalf("AddItem returned error: %v", err)
	}
	if _, err := svc.ApplyCoupon(ctx, "s1", "SAVE10"); err != nil {
		t.Fatalf("ApplyCoupon returned error: %v", err)
	}
	_, breakdown, err := svc.Quote(ctx, "s1", "NL")
	if err != nil {
		t.Fatalf("Quote returned error: %v", err)
	}
	if !breakdown.Subtotal.Equal(decimal.RequireFromString("50.00")) {
		t.Fatalf("subtotal = %s, want 50.00", breakdown.Subtotal.String())
	}
	if !breakdown.Discount.Equal(decimal.RequireFromString("5.00")) {
		t.Fatalf("discount = %s, want 5.00", breakdown.Discount.String())
	}
	if !breakdown.Total.Equal(decimal.RequireFromString("55.50")) {
		t.Fatalf("total = %s, want 55.50", breakdown.Total.String())
	}
}
