package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noodklaar/storefront/internal/commerce"
	domain "github.com/noodklaar/storefront/internal/domain"
	"github.com/noodklaar/storefront/internal/repositories"
)

var (
	// ErrCartInvalidQuantity signals a non-positive quantity on an add.
	ErrCartInvalidQuantity = errors.New("cart: quantity must be positive")
	// ErrCartProductUnavailable signals the product cannot be added.
	ErrCartProductUnavailable = errors.New("cart: product unavailable")
)

// ProductSource fetches product details from the commerce backend.
type ProductSource interface {
	GetProduct(ctx context.Context, id int64) (commerce.Product, error)
}

// CartService owns the per-session cart lifecycle. Every mutation persists
// the cart before returning it.
type CartService interface {
	Get(ctx context.Context, sessionID string) (domain.Cart, error)
	AddItem(ctx context.Context, sessionID string, productID int64, quantity int) (domain.Cart, error)
	SetQuantity(ctx context.Context, sessionID string, productID int64, quantity int) (domain.Cart, error)
	RemoveItem(ctx context.Context, sessionID string, productID int64) (domain.Cart, error)
	Clear(ctx context.Context, sessionID string) (domain.Cart, error)
	ApplyCoupon(ctx context.Context, sessionID string, code string) (domain.Cart, error)
	RemoveCoupon(ctx context.Context, sessionID string) (domain.Cart, error)
	Quote(ctx context.Context, sessionID string, country string) (domain.Cart, domain.PriceBreakdown, error)
}

type cartService struct {
	carts    repositories.CartRepository
	products ProductSource
	coupons  CouponService
	pricing  *PricingEngine
	logger   *zap.Logger
	now      func() time.Time
}

type CartServiceDeps struct {
	Carts    repositories.CartRepository
	Products ProductSource
	Coupons  CouponService
	Pricing  *PricingEngine
	Logger   *zap.Logger
	Now      func() time.Time
}

func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Carts == nil {
		return nil, errors.New("cart service: cart repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("cart service: product source is required")
	}
	if deps.Coupons == nil {
		return nil, errors.New("cart service: coupon service is required")
	}
	if deps.Pricing == nil {
		return nil, errors.New("cart service: pricing engine is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &cartService{
		carts:    deps.Carts,
		products: deps.Products,
		coupons:  deps.Coupons,
		pricing:  deps.Pricing,
		logger:   logger,
		now:      now,
	}, nil
}

// Get loads the session cart. A missing or undecodable cart comes back as a
// fresh empty cart, the session always has a usable cart.
func (s *cartService) Get(ctx context.Context, sessionID string) (domain.Cart, error) {
	cart, err := s.carts.GetCart(ctx, sessionID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return s.emptyCart(sessionID), nil
		}
		return domain.Cart{}, fmt.Errorf("cart: load session %s: %w", sessionID, err)
	}
	return cart, nil
}

// AddItem adds quantity of a product. Adding a product already in the cart
// accumulates its quantity.
func (s *cartService) AddItem(ctx context.Context, sessionID string, productID int64, quantity int) (domain.Cart, error) {
	if quantity <= 0 {
		return domain.Cart{}, ErrCartInvalidQuantity
	}
	cart, err := s.Get(ctx, sessionID)
	if err != nil {
		return domain.Cart{}, err
	}

	if idx := cart.IndexOfItem(productID); idx >= 0 {
		cart.Items[idx].Quantity += quantity
		return s.save(ctx, cart)
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		s.logger.Warn("product lookup failed on add",
			zap.Int64("product_id", productID), zap.Error(err))
		return domain.Cart{}, fmt.Errorf("%w: product %d", ErrCartProductUnavailable, productID)
	}
	item, err := lineItemFromProduct(product, quantity)
	if err != nil {
		s.logger.Error("product payload undecodable",
			zap.Int64("product_id", productID), zap.Error(err))
		return domain.Cart{}, fmt.Errorf("%w: product %d", ErrCartProductUnavailable, productID)
	}
	cart.Items = append(cart.Items, item)
	return s.save(ctx, cart)
}

// SetQuantity replaces the quantity of a cart line. Zero or negative removes
// the line. Setting a product that is not in the cart is a no-op.
func (s *cartService) SetQuantity(ctx context.Context, sessionID string, productID int64, quantity int) (domain.Cart, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, sessionID, productID)
	}
	cart, err := s.Get(ctx, sessionID)
	if err != nil {
		return domain.Cart{}, err
	}
	idx := cart.IndexOfItem(productID)
	if idx < 0 {
		return cart, nil
	}
	cart.Items[idx].Quantity = quantity
	return s.save(ctx, cart)
}

// RemoveItem drops a product from the cart. Removing an absent product is a
// no-op that still persists the cart timestamp.
func (s *cartService) RemoveItem(ctx context.Context, sessionID string, productID int64) (domain.Cart, error) {
	cart, err := s.Get(ctx, sessionID)
	if err != nil {
		return domain.Cart{}, err
	}
	idx := cart.IndexOfItem(productID)
	if idx >= 0 {
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	}
	return s.save(ctx, cart)
}

// Clear empties the cart and drops any applied coupon.
func (s *cartService) Clear(ctx context.Context, sessionID string) (domain.Cart, error) {
	cart, err := s.Get(ctx, sessionID)
	if err != nil {
		return domain.Cart{}, err
	}
	cart.Items = nil
	cart.Coupon = nil
	return s.save(ctx, cart)
}

// ApplyCoupon validates the code against the current subtotal and stores the
// coupon on the cart.
func (s *cartService) ApplyCoupon(ctx context.Context, sessionID string, code string) (domain.Cart, error) {
	cart, err := s.Get(ctx, sessionID)
	if err != nil {
		return domain.Cart{}, err
	}
	coupon, err := s.coupons.Validate(ctx, code, cartSubtotal(cart))
	if err != nil {
		return domain.Cart{}, err
	}
	cart.Coupon = &coupon
	return s.save(ctx, cart)
}

// RemoveCoupon detaches the coupon from the cart, items stay untouched.
func (s *cartService) RemoveCoupon(ctx context.Context, sessionID string) (domain.Cart, error) {
	cart, err := s.Get(ctx, sessionID)
	if err != nil {
		return domain.Cart{}, err
	}
	cart.Coupon = nil
	return s.save(ctx, cart)
}

// Quote returns the cart together with its price breakdown for the given
// destination country.
func (s *cartService) Quote(ctx context.Context, sessionID string, country string) (domain.Cart, domain.PriceBreakdown, error) {
	cart, err := s.Get(ctx, sessionID)
	if err != nil {
		return domain.Cart{}, domain.PriceBreakdown{}, err
	}
	breakdown, err := s.pricing.Quote(ctx, PriceQuoteCommand{
		Items:   cart.Items,
		Coupon:  cart.Coupon,
		Country: country,
	})
	if err != nil {
		return domain.Cart{}, domain.PriceBreakdown{}, err
	}
	return cart, breakdown, nil
}

func (s *cartService) save(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	cart.UpdatedAt = s.now().UTC()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = cart.UpdatedAt
	}
	if err := s.carts.SaveCart(ctx, cart); err != nil {
		return domain.Cart{}, fmt.Errorf("cart: persist session %s: %w", cart.SessionID, err)
	}
	return cart, nil
}

func (s *cartService) emptyCart(sessionID string) domain.Cart {
	now := s.now().UTC()
	return domain.Cart{SessionID: sessionID, CreatedAt: now, UpdatedAt: now}
}

func cartSubtotal(cart domain.Cart) decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range cart.Items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	return subtotal.Round(2)
}

// lineItemFromProduct snapshots the fields the cart needs from a product.
func lineItemFromProduct(product commerce.Product, quantity int) (domain.LineItem, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(product.Price))
	if err != nil {
		return domain.LineItem{}, err
	}
	item := domain.LineItem{
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: price,
		Quantity:  quantity,
	}
	if len(product.Images) > 0 {
		item.ImageURL = product.Images[0].Src
	}
	return item, nil
}
