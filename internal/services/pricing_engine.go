package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domain "github.com/noodklaar/storefront/internal/domain"
)

// ErrPricingInvalidInput signals bad request data such as non-positive
// quantities or negative unit prices.
var ErrPricingInvalidInput = errors.New("pricing: invalid input")

// VATPolicy decides how VAT relates to the goods and shipping amounts.
// The storefront quotes VAT-exclusive prices, so ExclusiveVAT is the
// canonical policy. InclusiveVAT exists for markets where listed prices
// already contain VAT.
type VATPolicy interface {
	// Apply returns the VAT amount and the grand total for the given
	// discounted goods value and shipping charge.
	Apply(subtotal, discount, shipping decimal.Decimal) (vat, total decimal.Decimal)
}

// ExclusiveVAT charges VAT on top of goods and shipping. The VAT base is
// the undiscounted subtotal plus shipping.
type ExclusiveVAT struct {
	Rate decimal.Decimal
}

func (p ExclusiveVAT) Apply(subtotal, discount, shipping decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	vat := subtotal.Add(shipping).Mul(p.Rate).Round(2)
	total := subtotal.Sub(discount).Add(shipping).Add(vat).Round(2)
	return vat, total
}

// InclusiveVAT treats listed prices as VAT-inclusive and reports the VAT
// portion contained in the payable total.
type InclusiveVAT struct {
	Rate decimal.Decimal
}

func (p InclusiveVAT) Apply(subtotal, discount, shipping decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	total := subtotal.Sub(discount).Add(shipping).Round(2)
	divisor := decimal.NewFromInt(1).Add(p.Rate)
	vat := total.Sub(total.Div(divisor).Round(2))
	return vat, total
}

// ShippingRates maps ISO country codes to flat shipping charges. Countries
// absent from the table fall back to DefaultRate.
type ShippingRates struct {
	ByCountry   map[string]decimal.Decimal
	DefaultRate decimal.Decimal
}

// DefaultShippingRates returns the standard EU delivery table.
func DefaultShippingRates() ShippingRates {
	return ShippingRates{
		ByCountry: map[string]decimal.Decimal{
			"NL": decimal.Zero,
			"BE": decimal.RequireFromString("4.95"),
			"DE": decimal.RequireFromString("6.95"),
			"FR": decimal.RequireFromString("8.95"),
		},
		DefaultRate: decimal.Zero,
	}
}

// RateFor resolves the shipping charge for a country code.
func (r ShippingRates) RateFor(country string) decimal.Decimal {
	code := strings.ToUpper(strings.TrimSpace(country))
	if rate, ok := r.ByCountry[code]; ok {
		return rate
	}
	return r.DefaultRate
}

// PricingEngine computes price breakdowns for carts.
type PricingEngine struct {
	vat      VATPolicy
	shipping ShippingRates
	logger   *zap.Logger
}

type PricingEngineDeps struct {
	VAT      VATPolicy
	Shipping ShippingRates
	Logger   *zap.Logger
}

func NewPricingEngine(deps PricingEngineDeps) (*PricingEngine, error) {
	if deps.VAT == nil {
		return nil, errors.New("pricing engine: vat policy is required")
	}
	if deps.Shipping.ByCountry == nil {
		deps.Shipping = DefaultShippingRates()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PricingEngine{
		vat:      deps.VAT,
		shipping: deps.Shipping,
		logger:   logger,
	}, nil
}

// PriceQuoteCommand carries everything the engine needs for one quote.
type PriceQuoteCommand struct {
	Items   []domain.LineItem
	Coupon  *domain.Coupon
	Country string
}

// Quote computes the full price breakdown for the given items, coupon and
// destination country. An empty cart yields an all-zero breakdown.
func (e *PricingEngine) Quote(ctx context.Context, cmd PriceQuoteCommand) (domain.PriceBreakdown, error) {
	subtotal := decimal.Zero
	for _, item := range cmd.Items {
		if item.Quantity <= 0 {
			return domain.PriceBreakdown{}, fmt.Errorf("%w: product %d quantity must be positive", ErrPricingInvalidInput, item.ProductID)
		}
		if item.UnitPrice.IsNegative() {
			return domain.PriceBreakdown{}, fmt.Errorf("%w: product %d unit price cannot be negative", ErrPricingInvalidInput, item.ProductID)
		}
		subtotal = subtotal.Add(item.LineTotal())
	}
	subtotal = subtotal.Round(2)

	if len(cmd.Items) == 0 {
		return domain.PriceBreakdown{
			Subtotal: decimal.Zero,
			Discount: decimal.Zero,
			Shipping: decimal.Zero,
			VAT:      decimal.Zero,
			Total:    decimal.Zero,
		}, nil
	}

	discount := e.discountFor(ctx, cmd.Coupon, subtotal)
	shipping := e.shipping.RateFor(cmd.Country)
	vat, total := e.vat.Apply(subtotal, discount, shipping)

	return domain.PriceBreakdown{
		Subtotal: subtotal,
		Discount: discount,
		Shipping: shipping,
		VAT:      vat,
		Total:    total,
	}, nil
}

// discountFor converts a coupon into a concrete discount amount. The
// discount never exceeds the subtotal.
func (e *PricingEngine) discountFor(ctx context.Context, coupon *domain.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	if coupon == nil {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch coupon.DiscountType {
	case domain.DiscountPercent:
		discount = subtotal.Mul(coupon.Amount).Div(decimal.NewFromInt(100)).Round(2)
	case domain.DiscountFixedCart, domain.DiscountFixedProduct:
		// Per-product fixed coupons are charged against the whole cart.
		discount = coupon.Amount
	default:
		e.logger.Warn("unknown discount type, treating as fixed cart",
			zap.String("coupon_code", coupon.Code),
			zap.String("discount_type", string(coupon.DiscountType)))
		discount = coupon.Amount
	}

	if discount.IsNegative() {
		return decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		e.logger.Info("discount clamped to subtotal",
			zap.String("coupon_code", coupon.Code),
			zap.String("discount", discount.String()),
			zap.String("subtotal", subtotal.String()))
		return subtotal
	}
	return discount.Round(2)
}
