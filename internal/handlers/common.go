package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noodklaar/storefront/internal/domain"
	"github.com/noodklaar/storefront/internal/platform/httpx"
	"github.com/noodklaar/storefront/internal/platform/requestctx"
)

var (
	errEmptyBody    = errors.New("request body must not be empty")
	errBodyTooLarge = errors.New("request body exceeds allowed size")
)

const defaultShippingCountry = "NL"

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

// sessionFromRequest extracts the shopper session id the session middleware
// attached. Requests that bypass the middleware get a 401.
func sessionFromRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	sessionID := strings.TrimSpace(requestctx.SessionID(r.Context()))
	if sessionID == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError("session_required", "no shopper session on request", http.StatusUnauthorized))
		return "", false
	}
	return sessionID, true
}

func shippingCountry(r *http.Request) string {
	country := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("country")))
	if country == "" {
		return defaultShippingCountry
	}
	return country
}

func money(value decimal.Decimal) string {
	return value.StringFixed(2)
}

type lineItemPayload struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	ImageURL  string `json:"image_url,omitempty"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
}

type couponPayload struct {
	ID           int64  `json:"id"`
	Code         string `json:"code"`
	DiscountType string `json:"discount_type"`
	Amount       string `json:"amount"`
	Description  string `json:"description,omitempty"`
}

type breakdownPayload struct {
	Subtotal string `json:"subtotal"`
	Discount string `json:"discount"`
	Shipping string `json:"shipping"`
	VAT      string `json:"vat"`
	Total    string `json:"total"`
}

type cartPayload struct {
	Items      []lineItemPayload `json:"items"`
	ItemsCount int               `json:"items_count"`
	Coupon     *couponPayload    `json:"coupon,omitempty"`
	Totals     *breakdownPayload `json:"totals,omitempty"`
	UpdatedAt  string            `json:"updated_at,omitempty"`
}

func buildCartPayload(cart domain.Cart, breakdown *domain.PriceBreakdown) cartPayload {
	payload := cartPayload{
		Items:      buildLineItems(cart.Items),
		ItemsCount: cart.ItemCount(),
	}
	if cart.Coupon != nil {
		payload.Coupon = buildCouponPayload(*cart.Coupon)
	}
	if breakdown != nil {
		payload.Totals = buildBreakdownPayload(*breakdown)
	}
	if !cart.UpdatedAt.IsZero() {
		payload.UpdatedAt = cart.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return payload
}

func buildLineItems(items []domain.LineItem) []lineItemPayload {
	payload := make([]lineItemPayload, 0, len(items))
	for _, item := range items {
		payload = append(payload, lineItemPayload{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: money(item.UnitPrice),
			ImageURL:  item.ImageURL,
			Quantity:  item.Quantity,
			LineTotal: money(item.LineTotal()),
		})
	}
	return payload
}

func buildCouponPayload(coupon domain.Coupon) *couponPayload {
	return &couponPayload{
		ID:           coupon.ID,
		Code:         coupon.Code,
		DiscountType: string(coupon.DiscountType),
		Amount:       coupon.Amount.String(),
		Description:  coupon.Description,
	}
}

func buildBreakdownPayload(breakdown domain.PriceBreakdown) *breakdownPayload {
	return &breakdownPayload{
		Subtotal: money(breakdown.Subtotal),
		Discount: money(breakdown.Discount),
		Shipping: money(breakdown.Shipping),
		VAT:      money(breakdown.VAT),
		Total:    money(breakdown.Total),
	}
}

type productPayload struct {
	ID               int64            `json:"id"`
	Name             string           `json:"name"`
	Slug             string           `json:"slug"`
	Permalink        string           `json:"permalink,omitempty"`
	Price            string           `json:"price"`
	RegularPrice     string           `json:"regular_price,omitempty"`
	OnSale           bool             `json:"on_sale"`
	ShortDescription string           `json:"short_description,omitempty"`
	Description      string           `json:"description,omitempty"`
	ImageURL         string           `json:"image_url,omitempty"`
	Categories       []categoryRefDTO `json:"categories,omitempty"`
	StockStatus      string           `json:"stock_status,omitempty"`
	StockQuantity    *int             `json:"stock_quantity,omitempty"`
}

type categoryRefDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type categoryPayload struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Parent      int64  `json:"parent,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	Count       int    `json:"count"`
}

func buildProductPayload(product domain.Product) productPayload {
	payload := productPayload{
		ID:               product.ID,
		Name:             product.Name,
		Slug:             product.Slug,
		Permalink:        product.Permalink,
		Price:            money(product.Price),
		OnSale:           product.OnSale,
		ShortDescription: product.ShortDescription,
		Description:      product.Description,
		ImageURL:         product.ImageURL,
		StockStatus:      product.StockStatus,
		StockQuantity:    product.StockQuantity,
	}
	if !product.RegularPrice.IsZero() {
		payload.RegularPrice = money(product.RegularPrice)
	}
	for _, ref := range product.Categories {
		payload.Categories = append(payload.Categories, categoryRefDTO{ID: ref.ID, Name: ref.Name, Slug: ref.Slug})
	}
	return payload
}

func buildProductList(products []domain.Product) []productPayload {
	payload := make([]productPayload, 0, len(products))
	for _, product := range products {
		payload = append(payload, buildProductPayload(product))
	}
	return payload
}

func buildCategoryList(categories []domain.Category) []categoryPayload {
	payload := make([]categoryPayload, 0, len(categories))
	for _, category := range categories {
		payload = append(payload, categoryPayload{
			ID:          category.ID,
			Name:        category.Name,
			Slug:        category.Slug,
			Parent:      category.Parent,
			Description: category.Description,
			ImageURL:    category.ImageURL,
			Count:       category.Count,
		})
	}
	return payload
}
