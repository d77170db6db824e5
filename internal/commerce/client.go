package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const apiBasePath = "/wp-json/wc/v3"

// defaultProductCacheTTL bounds how stale catalog reads may get.
const defaultProductCacheTTL = 5 * time.Minute

// StatusError is a non-2xx response from the commerce backend.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("commerce: backend returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("commerce: backend returned %d", e.StatusCode)
}

// IsNotFound reports whether the backend rejected the request with a 404.
func (e *StatusError) IsNotFound() bool { return e.StatusCode == http.StatusNotFound }

// Config holds connection settings for the commerce backend.
type Config struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	Timeout        time.Duration
	CacheTTL       time.Duration
}

// Client talks to the commerce backend REST API. Catalog reads go through a
// short-lived response cache, coupon and order calls always hit the backend.
type Client struct {
	baseURL    string
	key        string
	secret     string
	httpClient *http.Client
	logger     *zap.Logger

	cacheTTL time.Duration
	mu       sync.Mutex
	cache    map[string]cacheEntry
}

type cacheEntry struct {
	body      []byte
	expiresAt time.Time
}

// NewClient validates cfg and returns a ready client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("commerce: base url is required")
	}
	if strings.TrimSpace(cfg.ConsumerKey) == "" || strings.TrimSpace(cfg.ConsumerSecret) == "" {
		return nil, errors.New("commerce: consumer credentials are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultProductCacheTTL
	}
	return &Client{
		baseURL:    base,
		key:        strings.TrimSpace(cfg.ConsumerKey),
		secret:     strings.TrimSpace(cfg.ConsumerSecret),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		cacheTTL:   ttl,
		cache:      make(map[string]cacheEntry),
	}, nil
}

// ListProducts returns a page of published products.
func (c *Client) ListProducts(ctx context.Context, page, perPage int) ([]Product, error) {
	q := url.Values{}
	q.Set("status", "publish")
	q.Set("page", strconv.Itoa(positive(page, 1)))
	q.Set("per_page", strconv.Itoa(positive(perPage, 20)))
	var out []Product
	if err := c.getCached(ctx, "/products", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProduct fetches a single product by id.
func (c *Client) GetProduct(ctx context.Context, id int64) (Product, error) {
	var out Product
	if err := c.getCached(ctx, "/products/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return Product{}, err
	}
	return out, nil
}

// ProductsByCategory returns products belonging to a category.
func (c *Client) ProductsByCategory(ctx context.Context, categoryID int64, page, perPage int) ([]Product, error) {
	q := url.Values{}
	q.Set("status", "publish")
	q.Set("category", strconv.FormatInt(categoryID, 10))
	q.Set("page", strconv.Itoa(positive(page, 1)))
	q.Set("per_page", strconv.Itoa(positive(perPage, 20)))
	var out []Product
	if err := c.getCached(ctx, "/products", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchProducts runs a free-text product search. Search results bypass the
// cache, query cardinality would make cached entries useless.
func (c *Client) SearchProducts(ctx context.Context, term string, perPage int) ([]Product, error) {
	q := url.Values{}
	q.Set("status", "publish")
	q.Set("search", strings.TrimSpace(term))
	q.Set("per_page", strconv.Itoa(positive(perPage, 20)))
	var out []Product
	if err := c.get(ctx, "/products", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListCategories returns all non-empty product categories.
func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	q := url.Values{}
	q.Set("per_page", "100")
	q.Set("hide_empty", "true")
	var out []Category
	if err := c.getCached(ctx, "/products/categories", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CouponsByCode looks up coupons matching a code. The backend may return
// multiple candidates for one code, the caller decides which one applies.
// Coupon state changes server-side, so this call is never cached.
func (c *Client) CouponsByCode(ctx context.Context, code string) ([]Coupon, error) {
	q := url.Values{}
	q.Set("code", strings.TrimSpace(code))
	var out []Coupon
	if err := c.get(ctx, "/coupons", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateOrder creates a pending order on the backend.
func (c *Client) CreateOrder(ctx context.Context, payload OrderCreate) (Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodPost, "/orders", nil, payload, &out); err != nil {
		return Order{}, err
	}
	return out, nil
}

// GetOrder fetches an order by id.
func (c *Client) GetOrder(ctx context.Context, id int64) (Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+strconv.FormatInt(id, 10), nil, nil, &out); err != nil {
		return Order{}, err
	}
	return out, nil
}

// UpdateOrder applies payment details to an existing order.
func (c *Client) UpdateOrder(ctx context.Context, id int64, payload OrderUpdate) (Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodPut, "/orders/"+strconv.FormatInt(id, 10), nil, payload, &out); err != nil {
		return Order{}, err
	}
	return out, nil
}

// getCached serves catalog reads from the TTL cache when fresh.
func (c *Client) getCached(ctx context.Context, path string, query url.Values, out any) error {
	key := path
	if query != nil {
		key += "?" + query.Encode()
	}
	c.mu.Lock()
	entry, ok := c.cache[key]
	c.mu.Unlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return json.Unmarshal(entry.body, out)
	}

	body, err := c.getRaw(ctx, path, query)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.cache[key] = cacheEntry{body: body, expiresAt: time.Now().Add(c.cacheTTL)}
	c.mu.Unlock()
	return json.Unmarshal(body, out)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	body, err := c.getRaw(ctx, path, query)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

// getRaw performs a GET with one retry on transport failure. GETs against
// the backend are idempotent, so a single retry is safe.
func (c *Client) getRaw(ctx context.Context, path string, query url.Values) ([]byte, error) {
	body, err := c.roundTrip(ctx, http.MethodGet, path, query, nil)
	if err == nil {
		return body, nil
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, err
	}
	c.logger.Warn("commerce get failed, retrying once", zap.String("path", path), zap.Error(err))
	return c.roundTrip(ctx, http.MethodGet, path, query, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	var reqBody io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("commerce: encode %s %s: %w", method, path, err)
		}
		reqBody = bytes.NewReader(buf)
	}
	body, err := c.roundTripReader(ctx, method, path, query, reqBody)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body io.Reader) ([]byte, error) {
	return c.roundTripReader(ctx, method, path, query, body)
}

func (c *Client) roundTripReader(ctx context.Context, method, path string, query url.Values, body io.Reader) ([]byte, error) {
	endpoint := c.baseURL + apiBasePath + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("commerce: build request: %w", err)
	}
	req.SetBasicAuth(c.key, c.secret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("commerce: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("commerce: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var envelope apiError
		if err := json.Unmarshal(raw, &envelope); err == nil {
			statusErr.Code = envelope.Code
			statusErr.Message = envelope.Message
		}
		return nil, statusErr
	}
	return raw, nil
}

func positive(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
