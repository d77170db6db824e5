package domain

import "github.com/shopspring/decimal"

// PriceBreakdown captures the monetary results of pricing a cart. All amounts
// are full-precision decimals; rounding to two places happens only at the
// rendering boundary.
type PriceBreakdown struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Shipping decimal.Decimal
	VAT      decimal.Decimal
	Total    decimal.Decimal
}

// IsZero reports whether no amount has been computed.
func (b PriceBreakdown) IsZero() bool {
	return b.Subtotal.IsZero() && b.Discount.IsZero() && b.Shipping.IsZero() && b.VAT.IsZero() && b.Total.IsZero()
}
