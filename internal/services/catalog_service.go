package services

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noodklaar/storefront/internal/commerce"
	domain "github.com/noodklaar/storefront/internal/domain"
)

// ErrCatalogProductNotFound signals a lookup for an unknown product.
var ErrCatalogProductNotFound = errors.New("catalog: product not found")

// CatalogSource is the slice of the commerce client the catalog needs.
type CatalogSource interface {
	ListProducts(ctx context.Context, page, perPage int) ([]commerce.Product, error)
	GetProduct(ctx context.Context, id int64) (commerce.Product, error)
	ProductsByCategory(ctx context.Context, categoryID int64, page, perPage int) ([]commerce.Product, error)
	SearchProducts(ctx context.Context, term string, perPage int) ([]commerce.Product, error)
	ListCategories(ctx context.Context) ([]commerce.Category, error)
}

// CatalogService exposes the product catalog in storefront terms.
type CatalogService interface {
	ListProducts(ctx context.Context, page, perPage int) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (domain.Product, error)
	ProductsByCategory(ctx context.Context, categoryID int64, page, perPage int) ([]domain.Product, error)
	SearchProducts(ctx context.Context, term string) ([]domain.Product, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

type catalogService struct {
	source CatalogSource
	logger *zap.Logger
}

type CatalogServiceDeps struct {
	Source CatalogSource
	Logger *zap.Logger
}

func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Source == nil {
		return nil, errors.New("catalog service: source is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &catalogService{source: deps.Source, logger: logger}, nil
}

func (s *catalogService) ListProducts(ctx context.Context, page, perPage int) ([]domain.Product, error) {
	wire, err := s.source.ListProducts(ctx, page, perPage)
	if err != nil {
		return nil, err
	}
	return s.mapProducts(wire), nil
}

func (s *catalogService) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	wire, err := s.source.GetProduct(ctx, id)
	if err != nil {
		var statusErr *commerce.StatusError
		if errors.As(err, &statusErr) && statusErr.IsNotFound() {
			return domain.Product{}, ErrCatalogProductNotFound
		}
		return domain.Product{}, err
	}
	product, err := mapProduct(wire)
	if err != nil {
		s.logger.Error("product payload undecodable", zap.Int64("product_id", wire.ID), zap.Error(err))
		return domain.Product{}, ErrCatalogProductNotFound
	}
	return product, nil
}

func (s *catalogService) ProductsByCategory(ctx context.Context, categoryID int64, page, perPage int) ([]domain.Product, error) {
	wire, err := s.source.ProductsByCategory(ctx, categoryID, page, perPage)
	if err != nil {
		return nil, err
	}
	return s.mapProducts(wire), nil
}

func (s *catalogService) SearchProducts(ctx context.Context, term string) ([]domain.Product, error) {
	if strings.TrimSpace(term) == "" {
		return nil, nil
	}
	wire, err := s.source.SearchProducts(ctx, term, 20)
	if err != nil {
		return nil, err
	}
	return s.mapProducts(wire), nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	wire, err := s.source.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	categories := make([]domain.Category, 0, len(wire))
	for _, c := range wire {
		category := domain.Category{
			ID:          c.ID,
			Name:        c.Name,
			Slug:        c.Slug,
			Parent:      c.Parent,
			Description: c.Description,
			Count:       c.Count,
		}
		if c.Image != nil {
			category.ImageURL = c.Image.Src
		}
		categories = append(categories, category)
	}
	return categories, nil
}

// mapProducts drops entries with undecodable prices rather than failing the
// whole listing.
func (s *catalogService) mapProducts(wire []commerce.Product) []domain.Product {
	products := make([]domain.Product, 0, len(wire))
	for _, w := range wire {
		product, err := mapProduct(w)
		if err != nil {
			s.logger.Warn("skipping product with undecodable price",
				zap.Int64("product_id", w.ID), zap.Error(err))
			continue
		}
		products = append(products, product)
	}
	return products
}

func mapProduct(wire commerce.Product) (domain.Product, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(wire.Price))
	if err != nil {
		return domain.Product{}, err
	}
	regular := price
	if trimmed := strings.TrimSpace(wire.RegularPrice); trimmed != "" {
		if parsed, err := decimal.NewFromString(trimmed); err == nil {
			regular = parsed
		}
	}
	product := domain.Product{
		ID:               wire.ID,
		Name:             wire.Name,
		Slug:             wire.Slug,
		Permalink:        wire.Permalink,
		Price:            price,
		RegularPrice:     regular,
		OnSale:           wire.OnSale,
		Description:      wire.Description,
		ShortDescription: wire.ShortDescription,
		StockStatus:      wire.StockStatus,
		StockQuantity:    wire.StockQuantity,
	}
	if len(wire.Images) > 0 {
		product.ImageURL = wire.Images[0].Src
	}
	for _, c := range wire.Categories {
		product.Categories = append(product.Categories, domain.CategoryRef{ID: c.ID, Name: c.Name, Slug: c.Slug})
	}
	return product, nil
}
