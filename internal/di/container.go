// Package di wires configuration, the commerce backend client and the
// storefront services into a single container for the API binary.
package di

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noodklaar/storefront/internal/commerce"
	"github.com/noodklaar/storefront/internal/payments"
	"github.com/noodklaar/storefront/internal/platform/config"
	"github.com/noodklaar/storefront/internal/repositories"
	"github.com/noodklaar/storefront/internal/services"
)

// Services bundles the storefront service layer.
type Services struct {
	Catalog  services.CatalogService
	Coupons  services.CouponService
	Cart     services.CartService
	Checkout services.CheckoutService
}

// Container aggregates configuration, repositories and services.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Commerce     *commerce.Client
	Bridge       *payments.WooCommerceBridge
	Services     Services
}

// NewContainer builds the service graph on top of the supplied repository
// registry. The registry is owned by the container after this call.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, logger *zap.Logger) (*Container, error) {
	if reg == nil {
		return nil, errors.New("di: repository registry is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	container := &Container{
		Config:       cfg,
		Repositories: reg,
	}
	if err := container.buildServices(ctx, logger); err != nil {
		return nil, err
	}
	return container, nil
}

// Close releases resources held by the container.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func (c *Container) buildServices(_ context.Context, logger *zap.Logger) error {
	client, err := commerce.NewClient(commerce.Config{
		BaseURL:        c.Config.Commerce.BaseURL,
		ConsumerKey:    c.Config.Commerce.ConsumerKey,
		ConsumerSecret: c.Config.Commerce.ConsumerSecret,
		Timeout:        c.Config.Commerce.Timeout,
		CacheTTL:       c.Config.Commerce.CacheTTL,
	}, logger.Named("commerce"))
	if err != nil {
		return fmt.Errorf("build commerce client: %w", err)
	}
	c.Commerce = client

	pricing, err := services.NewPricingEngine(services.PricingEngineDeps{
		VAT:      vatPolicy(c.Config.Pricing),
		Shipping: shippingRates(c.Config.Pricing),
		Logger:   logger.Named("pricing"),
	})
	if err != nil {
		return fmt.Errorf("build pricing engine: %w", err)
	}

	coupons, err := services.NewCouponService(services.CouponServiceDeps{
		Source: client,
		Logger: logger.Named("coupons"),
	})
	if err != nil {
		return fmt.Errorf("build coupon service: %w", err)
	}
	c.Services.Coupons = coupons

	catalog, err := services.NewCatalogService(services.CatalogServiceDeps{
		Source: client,
		Logger: logger.Named("catalog"),
	})
	if err != nil {
		return fmt.Errorf("build catalog service: %w", err)
	}
	c.Services.Catalog = catalog

	cart, err := services.NewCartService(services.CartServiceDeps{
		Carts:    c.Repositories.Carts(),
		Products: client,
		Coupons:  coupons,
		Pricing:  pricing,
		Logger:   logger.Named("cart"),
	})
	if err != nil {
		return fmt.Errorf("build cart service: %w", err)
	}
	c.Services.Cart = cart

	bridge, err := payments.NewWooCommerceBridge(payments.WooCommerceBridgeDeps{
		Gateway: client,
		BaseURL: c.Config.Commerce.BaseURL,
		Mode:    payments.ParseMode(c.Config.Payment.Mode),
		Logger:  logger.Named("payments"),
	})
	if err != nil {
		return fmt.Errorf("build payment bridge: %w", err)
	}
	c.Bridge = bridge

	checkout, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		States:  c.Repositories.Checkouts(),
		Carts:   c.Repositories.Carts(),
		Pricing: pricing,
		Orders:  client,
		Bridge:  bridge,
		Logger:  logger.Named("checkout"),
	})
	if err != nil {
		return fmt.Errorf("build checkout service: %w", err)
	}
	c.Services.Checkout = checkout

	return nil
}

func vatPolicy(cfg config.PricingConfig) services.VATPolicy {
	if cfg.VATMode == "inclusive" {
		return services.InclusiveVAT{Rate: cfg.VATRate}
	}
	return services.ExclusiveVAT{Rate: cfg.VATRate}
}

func shippingRates(cfg config.PricingConfig) services.ShippingRates {
	if len(cfg.ShippingRates) == 0 {
		return services.DefaultShippingRates()
	}
	return services.ShippingRates{
		ByCountry:   cfg.ShippingRates,
		DefaultRate: cfg.DefaultShippingRate,
	}
}
