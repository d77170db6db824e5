package repositories

import (
	"context"

	domain "github.com/noodklaar/storefront/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Carts() CartRepository
	Checkouts() CheckoutRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsUnavailable() bool
}

// CartRepository persists per-session carts. Implementations must return a
// RepositoryError with IsNotFound when no cart exists for the session or the
// stored state cannot be decoded.
type CartRepository interface {
	GetCart(ctx context.Context, sessionID string) (domain.Cart, error)
	SaveCart(ctx context.Context, cart domain.Cart) error
	DeleteCart(ctx context.Context, sessionID string) error
}

// CheckoutRepository persists per-session checkout state machines.
type CheckoutRepository interface {
	GetState(ctx context.Context, sessionID string) (domain.CheckoutState, error)
	SaveState(ctx context.Context, sessionID string, state domain.CheckoutState) error
	DeleteState(ctx context.Context, sessionID string) error
}
