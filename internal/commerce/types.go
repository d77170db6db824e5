package commerce

// Wire types mirror the commerce backend's REST payloads. Monetary fields
// arrive as decimal strings and are converted at the mapping boundary.

// Image is a product or category image reference.
type Image struct {
	ID  int64  `json:"id"`
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// CategoryRef is the embedded category summary on a product.
type CategoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Product is the backend's product resource.
type Product struct {
	ID               int64         `json:"id"`
	Name             string        `json:"name"`
	Slug             string        `json:"slug"`
	Permalink        string        `json:"permalink"`
	Price            string        `json:"price"`
	RegularPrice     string        `json:"regular_price"`
	SalePrice        string        `json:"sale_price"`
	OnSale           bool          `json:"on_sale"`
	Description      string        `json:"description"`
	ShortDescription string        `json:"short_description"`
	Images           []Image       `json:"images"`
	Categories       []CategoryRef `json:"categories"`
	StockStatus      string        `json:"stock_status"`
	StockQuantity    *int          `json:"stock_quantity"`
}

// Category is the backend's category resource.
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Parent      int64  `json:"parent"`
	Description string `json:"description"`
	Image       *Image `json:"image"`
	Count       int    `json:"count"`
}

// Coupon is the backend's coupon resource. Bounds are decimal strings that
// may be empty, usage_limit is null for unlimited coupons.
type Coupon struct {
	ID            int64    `json:"id"`
	Code          string   `json:"code"`
	Amount        string   `json:"amount"`
	DiscountType  string   `json:"discount_type"`
	Description   string   `json:"description"`
	DateExpires   *string  `json:"date_expires"`
	UsageCount    int      `json:"usage_count"`
	UsageLimit    *int     `json:"usage_limit"`
	MinimumAmount string   `json:"minimum_amount"`
	MaximumAmount string   `json:"maximum_amount"`
	ProductIDs    []int64  `json:"product_ids"`
	EmailRestrict []string `json:"email_restrictions"`
}

// Billing is the billing block sent with an order.
type Billing struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2,omitempty"`
	City      string `json:"city"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
}

// OrderLineItem references a product and quantity on an order create call.
type OrderLineItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// CouponLine attaches a coupon code to an order.
type CouponLine struct {
	Code string `json:"code"`
}

// ShippingLine adds a shipping charge to an order.
type ShippingLine struct {
	MethodID    string `json:"method_id"`
	MethodTitle string `json:"method_title"`
	Total       string `json:"total"`
}

// MetaData is an order metadata key/value entry.
type MetaData struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// OrderCreate is the payload for creating an order.
type OrderCreate struct {
	Billing       Billing         `json:"billing"`
	LineItems     []OrderLineItem `json:"line_items"`
	CouponLines   []CouponLine    `json:"coupon_lines,omitempty"`
	ShippingLines []ShippingLine  `json:"shipping_lines,omitempty"`
	MetaData      []MetaData      `json:"meta_data,omitempty"`
}

// OrderUpdate is the payload for attaching payment details to an order.
type OrderUpdate struct {
	PaymentMethod      string     `json:"payment_method,omitempty"`
	PaymentMethodTitle string     `json:"payment_method_title,omitempty"`
	SetPaid            bool       `json:"set_paid,omitempty"`
	Status             string     `json:"status,omitempty"`
	TransactionID      string     `json:"transaction_id,omitempty"`
	DatePaid           string     `json:"date_paid,omitempty"`
	MetaData           []MetaData `json:"meta_data,omitempty"`
}

// Order is the backend's order resource as consumed by the storefront.
type Order struct {
	ID                 int64   `json:"id"`
	Status             string  `json:"status"`
	OrderKey           string  `json:"order_key"`
	Currency           string  `json:"currency"`
	Total              string  `json:"total"`
	ShippingTotal      string  `json:"shipping_total"`
	DiscountTotal      string  `json:"discount_total"`
	PaymentMethod      string  `json:"payment_method"`
	PaymentMethodTitle string  `json:"payment_method_title"`
	TransactionID      string  `json:"transaction_id"`
	DateCreated        string  `json:"date_created"`
	DatePaid           *string `json:"date_paid"`
	Billing            Billing `json:"billing"`
}

// apiError is the backend's JSON error envelope.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
