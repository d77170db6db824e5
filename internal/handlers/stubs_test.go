package handlers

import (
	"context"

	"github.com/noodklaar/storefront/internal/domain"
	"github.com/noodklaar/storefront/internal/payments"
	"github.com/noodklaar/storefront/internal/services"
)

type stubCartService struct {
	getFn          func(ctx context.Context, sessionID string) (domain.Cart, error)
	addItemFn      func(ctx context.Context, sessionID string, productID int64, quantity int) (domain.Cart, error)
	setQuantityFn  func(ctx context.Context, sessionID string, productID int64, quantity int) (domain.Cart, error)
	removeItemFn   func(ctx context.Context, sessionID string, productID int64) (domain.Cart, error)
	clearFn        func(ctx context.Context, sessionID string) (domain.Cart, error)
	applyCouponFn  func(ctx context.Context, sessionID string, code string) (domain.Cart, error)
	removeCouponFn func(ctx context.Context, sessionID string) (domain.Cart, error)
	quoteFn        func(ctx context.Context, sessionID string, country string) (domain.Cart, domain.PriceBreakdown, error)
}

func (s *stubCartService) Get(ctx context.Context, sessionID string) (domain.Cart, error) {
	return s.getFn(ctx, sessionID)
}

func (s *stubCartService) AddItem(ctx context.Context, sessionID string, productID int64, quantity int) (domain.Cart, error) {
	return s.addItemFn(ctx, sessionID, productID, quantity)
}

func (s *stubCartService) SetQuantity(ctx context.Context, sessionID string, productID int64, quantity int) (domain.Cart, error) {
	return s.setQuantityFn(ctx, sessionID, productID, quantity)
}

func (s *stubCartService) RemoveItem(ctx context.Context, sessionID string, productID int64) (domain.Cart, error) {
	return s.removeItemFn(ctx, sessionID, productID)
}

func (s *stubCartService) Clear(ctx context.Context, sessionID string) (domain.Cart, error) {
	return s.clearFn(ctx, sessionID)
}

func (s *stubCartService) ApplyCoupon(ctx context.Context, sessionID string, code string) (domain.Cart, error) {
	return s.applyCouponFn(ctx, sessionID, code)
}

func (s *stubCartService) RemoveCoupon(ctx context.Context, sessionID string) (domain.Cart, error) {
	return s.removeCouponFn(ctx, sessionID)
}

func (s *stubCartService) Quote(ctx context.Context, sessionID string, country string) (domain.Cart, domain.PriceBreakdown, error) {
	return s.quoteFn(ctx, sessionID, country)
}

var _ services.CartService = (*stubCartService)(nil)

type stubCheckoutService struct {
	stateFn           func(ctx context.Context, sessionID string) (domain.CheckoutState, error)
	beginFn           func(ctx context.Context, sessionID string, customer domain.CustomerDetails) (domain.CheckoutState, error)
	placeOrderFn      func(ctx context.Context, sessionID string) (domain.CheckoutState, error)
	startPaymentFn    func(ctx context.Context, sessionID string, method payments.Method) (payments.Instruction, domain.CheckoutState, error)
	returnToEditingFn func(ctx context.Context, sessionID string) (domain.CheckoutState, error)
	orderStatusFn     func(ctx context.Context, sessionID string, orderID int64, orderKey string) (services.OrderStatusResult, error)
}

func (s *stubCheckoutService) State(ctx context.Context, sessionID string) (domain.CheckoutState, error) {
	return s.stateFn(ctx, sessionID)
}

func (s *stubCheckoutService) Begin(ctx context.Context, sessionID string, customer domain.CustomerDetails) (domain.CheckoutState, error) {
	return s.beginFn(ctx, sessionID, customer)
}

func (s *stubCheckoutService) PlaceOrder(ctx context.Context, sessionID string) (domain.CheckoutState, error) {
	return s.placeOrderFn(ctx, sessionID)
}

func (s *stubCheckoutService) StartPayment(ctx context.Context, sessionID string, method payments.Method) (payments.Instruction, domain.CheckoutState, error) {
	return s.startPaymentFn(ctx, sessionID, method)
}

func (s *stubCheckoutService) ReturnToEditing(ctx context.Context, sessionID string) (domain.CheckoutState, error) {
	return s.returnToEditingFn(ctx, sessionID)
}

func (s *stubCheckoutService) OrderStatus(ctx context.Context, sessionID string, orderID int64, orderKey string) (services.OrderStatusResult, error) {
	return s.orderStatusFn(ctx, sessionID, orderID, orderKey)
}

var _ services.CheckoutService = (*stubCheckoutService)(nil)

type stubCatalogService struct {
	listProductsFn       func(ctx context.Context, page, perPage int) ([]domain.Product, error)
	getProductFn         func(ctx context.Context, id int64) (domain.Product, error)
	productsByCategoryFn func(ctx context.Context, categoryID int64, page, perPage int) ([]domain.Product, error)
	searchProductsFn     func(ctx context.Context, term string) ([]domain.Product, error)
	listCategoriesFn     func(ctx context.Context) ([]domain.Category, error)
}

func (s *stubCatalogService) ListProducts(ctx context.Context, page, perPage int) ([]domain.Product, error) {
	return s.listProductsFn(ctx, page, perPage)
}

func (s *stubCatalogService) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	return s.getProductFn(ctx, id)
}

func (s *stubCatalogService) ProductsByCategory(ctx context.Context, categoryID int64, page, perPage int) ([]domain.Product, error) {
	return s.productsByCategoryFn(ctx, categoryID, page, perPage)
}

func (s *stubCatalogService) SearchProducts(ctx context.Context, term string) ([]domain.Product, error) {
	return s.searchProductsFn(ctx, term)
}

func (s *stubCatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.listCategoriesFn(ctx)
}

var _ services.CatalogService = (*stubCatalogService)(nil)
