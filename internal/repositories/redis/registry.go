// Package redis provides repository implementations backed by a Redis
// instance, suitable for running multiple storefront replicas.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	domain "github.com/noodklaar/storefront/internal/domain"
	"github.com/noodklaar/storefront/internal/repositories"
)

const (
	cartKeyPrefix     = "storefront:cart:"
	checkoutKeyPrefix = "storefront:checkout:"
)

// Config controls connection and retention settings.
type Config struct {
	Addr       string
	Password   string
	DB         int
	SessionTTL time.Duration
}

// Registry bundles the Redis repositories behind the repositories.Registry port.
type Registry struct {
	client *goredis.Client
	carts  *CartRepository
	states *CheckoutRepository
}

// NewRegistry connects to Redis and returns the registry. The connection is
// verified with a ping so misconfiguration fails at startup, not first use.
func NewRegistry(ctx context.Context, cfg Config, logger *zap.Logger) (*Registry, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis: addr is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, repositories.NewUnavailable("redis.connect", "ping failed", err)
	}
	return &Registry{
		client: client,
		carts:  &CartRepository{client: client, ttl: ttl, logger: logger},
		states: &CheckoutRepository{client: client, ttl: ttl, logger: logger},
	}, nil
}

func (r *Registry) Close(context.Context) error { return r.client.Close() }

// Client exposes the underlying connection so other components can share it.
func (r *Registry) Client() *goredis.Client { return r.client }

func (r *Registry) Carts() repositories.CartRepository { return r.carts }

func (r *Registry) Checkouts() repositories.CheckoutRepository { return r.states }

// CartRepository stores carts as JSON values with a rolling TTL.
type CartRepository struct {
	client *goredis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func (r *CartRepository) GetCart(ctx context.Context, sessionID string) (domain.Cart, error) {
	raw, err := r.client.Get(ctx, cartKeyPrefix+sessionID).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.Cart{}, repositories.NewNotFound("redis.carts.get", "cart not found")
	}
	if err != nil {
		return domain.Cart{}, repositories.NewUnavailable("redis.carts.get", "read failed", err)
	}
	var cart domain.Cart
	if err := json.Unmarshal(raw, &cart); err != nil {
		// Undecodable state is treated as absent so the session recovers
		// with an empty cart instead of erroring forever.
		r.logger.Warn("discarding undecodable cart state",
			zap.String("session_id", sessionID), zap.Error(err))
		return domain.Cart{}, repositories.NewNotFound("redis.carts.get", "cart state undecodable")
	}
	return cart, nil
}

func (r *CartRepository) SaveCart(ctx context.Context, cart domain.Cart) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return repositories.NewUnavailable("redis.carts.save", "encode failed", err)
	}
	if err := r.client.Set(ctx, cartKeyPrefix+cart.SessionID, raw, r.ttl).Err(); err != nil {
		return repositories.NewUnavailable("redis.carts.save", "write failed", err)
	}
	return nil
}

func (r *CartRepository) DeleteCart(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, cartKeyPrefix+sessionID).Err(); err != nil {
		return repositories.NewUnavailable("redis.carts.delete", "delete failed", err)
	}
	return nil
}

// CheckoutRepository stores checkout state as JSON values with a rolling TTL.
type CheckoutRepository struct {
	client *goredis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func (r *CheckoutRepository) GetState(ctx context.Context, sessionID string) (domain.CheckoutState, error) {
	raw, err := r.client.Get(ctx, checkoutKeyPrefix+sessionID).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.CheckoutState{}, repositories.NewNotFound("redis.checkouts.get", "checkout state not found")
	}
	if err != nil {
		return domain.CheckoutState{}, repositories.NewUnavailable("redis.checkouts.get", "read failed", err)
	}
	var state domain.CheckoutState
	if err := json.Unmarshal(raw, &state); err != nil {
		r.logger.Warn("discarding undecodable checkout state",
			zap.String("session_id", sessionID), zap.Error(err))
		return domain.CheckoutState{}, repositories.NewNotFound("redis.checkouts.get", "checkout state undecodable")
	}
	return state, nil
}

func (r *CheckoutRepository) SaveState(ctx context.Context, sessionID string, state domain.CheckoutState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return repositories.NewUnavailable("redis.checkouts.save", "encode failed", err)
	}
	if err := r.client.Set(ctx, checkoutKeyPrefix+sessionID, raw, r.ttl).Err(); err != nil {
		return repositories.NewUnavailable("redis.checkouts.save", "write failed", err)
	}
	return nil
}

func (r *CheckoutRepository) DeleteState(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, checkoutKeyPrefix+sessionID).Err(); err != nil {
		return repositories.NewUnavailable("redis.checkouts.delete", "delete failed", err)
	}
	return nil
}
