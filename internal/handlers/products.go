package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noodklaar/storefront/internal/platform/httpx"
	"github.com/noodklaar/storefront/internal/services"
)

const (
	defaultProductsPerPage = 20
	maxProductsPerPage     = 100
)

// ProductHandlers exposes the read-only catalog endpoints.
type ProductHandlers struct {
	catalog services.CatalogService
}

// NewProductHandlers constructs handlers over the catalog service.
func NewProductHandlers(catalog services.CatalogService) *ProductHandlers {
	return &ProductHandlers{catalog: catalog}
}

// Routes wires the /products endpoints onto the provided router.
func (h *ProductHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listProducts)
	r.Get("/search", h.searchProducts)
	r.Get("/categories", h.listCategories)
	r.Get("/categories/{categoryID}", h.productsByCategory)
	r.Get("/{productID}", h.getProduct)
}

func (h *ProductHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, perPage := paginationParams(r)

	products, err := h.catalog.ListProducts(ctx, page, perPage)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"products": buildProductList(products)})
}

func (h *ProductHandlers) searchProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	term := strings.TrimSpace(r.URL.Query().Get("q"))

	products, err := h.catalog.SearchProducts(ctx, term)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"products": buildProductList(products)})
}

func (h *ProductHandlers) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	categories, err := h.catalog.ListCategories(ctx)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"categories": buildCategoryList(categories)})
}

func (h *ProductHandlers) productsByCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	categoryID, err := strconv.ParseInt(chi.URLParam(r, "categoryID"), 10, 64)
	if err != nil || categoryID <= 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "categoryID must be a positive integer", http.StatusBadRequest))
		return
	}
	page, perPage := paginationParams(r)

	products, svcErr := h.catalog.ProductsByCategory(ctx, categoryID, page, perPage)
	if svcErr != nil {
		h.writeCatalogError(ctx, w, svcErr)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"products": buildProductList(products)})
}

func (h *ProductHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || productID <= 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "productID must be a positive integer", http.StatusBadRequest))
		return
	}

	product, svcErr := h.catalog.GetProduct(ctx, productID)
	if svcErr != nil {
		h.writeCatalogError(ctx, w, svcErr)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"product": buildProductPayload(product)})
}

func (h *ProductHandlers) writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCatalogProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog backend unavailable", http.StatusBadGateway))
	}
}

func paginationParams(r *http.Request) (int, int) {
	page := 1
	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			page = parsed
		}
	}
	perPage := defaultProductsPerPage
	if raw := strings.TrimSpace(r.URL.Query().Get("per_page")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			perPage = parsed
		}
	}
	if perPage > maxProductsPerPage {
		perPage = maxProductsPerPage
	}
	return page, perPage
}
