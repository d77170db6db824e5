// Package memory provides in-process repository implementations used for
// local development and tests.
package memory

import (
	"context"
	"sync"

	domain "github.com/noodklaar/storefront/internal/domain"
	"github.com/noodklaar/storefront/internal/repositories"
)

// Registry bundles the in-memory repositories behind the repositories.Registry port.
type Registry struct {
	carts     *CartRepository
	checkouts *CheckoutRepository
}

// NewRegistry returns an empty in-memory registry.
func NewRegistry() *Registry {
	return &Registry{
		carts:     NewCartRepository(),
		checkouts: NewCheckoutRepository(),
	}
}

func (r *Registry) Close(context.Context) error { return nil }

func (r *Registry) Carts() repositories.CartRepository { return r.carts }

func (r *Registry) Checkouts() repositories.CheckoutRepository { return r.checkouts }

// CartRepository stores carts keyed by session id.
type CartRepository struct {
	mu    sync.RWMutex
	carts map[string]domain.Cart
}

func NewCartRepository() *CartRepository {
	return &CartRepository{carts: make(map[string]domain.Cart)}
}

func (r *CartRepository) GetCart(_ context.Context, sessionID string) (domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cart, ok := r.carts[sessionID]
	if !ok {
		return domain.Cart{}, repositories.NewNotFound("memory.carts.get", "cart not found")
	}
	return cloneCart(cart), nil
}

func (r *CartRepository) SaveCart(_ context.Context, cart domain.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carts[cart.SessionID] = cloneCart(cart)
	return nil
}

func (r *CartRepository) DeleteCart(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, sessionID)
	return nil
}

// CheckoutRepository stores checkout state keyed by session id.
type CheckoutRepository struct {
	mu     sync.RWMutex
	states map[string]domain.CheckoutState
}

func NewCheckoutRepository() *CheckoutRepository {
	return &CheckoutRepository{states: make(map[string]domain.CheckoutState)}
}

func (r *CheckoutRepository) GetState(_ context.Context, sessionID string) (domain.CheckoutState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.states[sessionID]
	if !ok {
		return domain.CheckoutState{}, repositories.NewNotFound("memory.checkouts.get", "checkout state not found")
	}
	return state, nil
}

func (r *CheckoutRepository) SaveState(_ context.Context, sessionID string, state domain.CheckoutState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[sessionID] = state
	return nil
}

func (r *CheckoutRepository) DeleteState(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, sessionID)
	return nil
}

// cloneCart copies the slices so callers cannot mutate stored state.
func cloneCart(cart domain.Cart) domain.Cart {
	out := cart
	if cart.Items != nil {
		out.Items = make([]domain.LineItem, len(cart.Items))
		copy(out.Items, cart.Items)
	}
	if cart.Coupon != nil {
		coupon := *cart.Coupon
		out.Coupon = &coupon
	}
	return out
}
