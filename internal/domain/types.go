package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product captures the catalog fields the storefront renders and snapshots into carts.
type Product struct {
	ID               int64
	Name             string
	Slug             string
	Permalink        string
	Price            decimal.Decimal
	RegularPrice     decimal.Decimal
	OnSale           bool
	ShortDescription string
	Description      string
	ImageURL         string
	Categories       []CategoryRef
	StockStatus      string
	StockQuantity    *int
}

// CategoryRef identifies a catalog category a product belongs to.
type CategoryRef struct {
	ID   int64
	Name string
	Slug string
}

// Category describes a browsable catalog category.
type Category struct {
	ID          int64
	Name        string
	Slug        string
	Parent      int64
	Description string
	ImageURL    string
	Count       int
}

// LineItem is one product entry in a cart. Name, unit price, and image are a
// display snapshot captured at add time; the cart never re-prices an item.
type LineItem struct {
	ProductID int64
	Name      string
	UnitPrice decimal.Decimal
	ImageURL  string
	Quantity  int
}

// LineTotal returns unit price times quantity at full precision.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// DiscountType enumerates the coupon discount modes the backend exposes.
type DiscountType string

const (
	// DiscountPercent discounts a percentage of the cart subtotal.
	DiscountPercent DiscountType = "percent"
	// DiscountFixedCart discounts a fixed amount from the cart subtotal.
	DiscountFixedCart DiscountType = "fixed_cart"
	// DiscountFixedProduct discounts a fixed amount per eligible product.
	// The storefront treats it as DiscountFixedCart; see the pricing engine.
	DiscountFixedProduct DiscountType = "fixed_product"
)

// ParseDiscountType normalises a raw backend discount type, defaulting to fixed_cart.
func ParseDiscountType(raw string) DiscountType {
	switch DiscountType(strings.ToLower(strings.TrimSpace(raw))) {
	case DiscountPercent:
		return DiscountPercent
	case DiscountFixedProduct:
		return DiscountFixedProduct
	default:
		return DiscountFixedCart
	}
}

// Coupon is the normalised discount record stored alongside a cart after a
// successful validation. Zero-valued bounds mean "no bound"; a nil expiry
// means the coupon never expires.
type Coupon struct {
	ID            int64
	Code          string
	DiscountType  DiscountType
	Amount        decimal.Decimal
	Description   string
	MinimumAmount decimal.Decimal
	MaximumAmount decimal.Decimal
	UsageLimit    int
	UsageCount    int
	ExpiresAt     *time.Time
}

// Cart holds the ordered line items and the at-most-one applied coupon for a
// browser session. Items are keyed by product id; adding an existing product
// accumulates quantity instead of duplicating the entry.
type Cart struct {
	SessionID string
	Items     []LineItem
	Coupon    *Coupon
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ItemCount returns the summed quantity across all line items.
func (c Cart) ItemCount() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// IndexOfItem returns the position of the line item for the product, or -1.
func (c Cart) IndexOfItem(productID int64) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// CustomerDetails carries the billing fields collected on the checkout form.
type CustomerDetails struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address1  string
	Address2  string
	City      string
	Postcode  string
	Country   string
}

// OrderSnapshot is the immutable copy of cart, customer, and pricing data
// captured at order placement. The payment and confirmation steps consume the
// snapshot instead of re-deriving pricing from the mutable cart.
type OrderSnapshot struct {
	Items     []LineItem
	Customer  CustomerDetails
	Coupon    *Coupon
	Breakdown PriceBreakdown
	PlacedAt  time.Time
}

// PendingOrderReference correlates the snapshot with the authoritative order
// on the commerce backend for the duration of the payment step.
type PendingOrderReference struct {
	OrderID  int64
	OrderKey string
	Total    decimal.Decimal
	Currency string
}
