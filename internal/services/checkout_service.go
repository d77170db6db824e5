package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noodklaar/storefront/internal/commerce"
	domain "github.com/noodklaar/storefront/internal/domain"
	"github.com/noodklaar/storefront/internal/payments"
	"github.com/noodklaar/storefront/internal/repositories"
)

var (
	// ErrCheckoutEmptyCart signals a checkout attempt on an empty cart.
	ErrCheckoutEmptyCart = errors.New("checkout: cart is empty")
	// ErrCheckoutNotReady signals the session lacks the snapshot or pending
	// order the requested step needs. Callers send the shopper back to the
	// cart to start over.
	ErrCheckoutNotReady = errors.New("checkout: session not ready for this step")
	// ErrOrderKeyMismatch signals an order status probe with a wrong key.
	ErrOrderKeyMismatch = errors.New("checkout: order key mismatch")
)

// OrderPlacer is the slice of the commerce client the checkout flow needs.
type OrderPlacer interface {
	CreateOrder(ctx context.Context, payload commerce.OrderCreate) (commerce.Order, error)
	GetOrder(ctx context.Context, id int64) (commerce.Order, error)
}

// OrderStatusResult is the shopper-visible view of a backend order.
type OrderStatusResult struct {
	OrderID       int64
	Status        string
	Paid          bool
	Total         decimal.Decimal
	Currency      string
	PaymentMethod string
}

// CheckoutService sequences a session from cart editing to a settled order.
type CheckoutService interface {
	State(ctx context.Context, sessionID string) (domain.CheckoutState, error)
	Begin(ctx context.Context, sessionID string, customer domain.CustomerDetails) (domain.CheckoutState, error)
	PlaceOrder(ctx context.Context, sessionID string) (domain.CheckoutState, error)
	StartPayment(ctx context.Context, sessionID string, method payments.Method) (payments.Instruction, domain.CheckoutState, error)
	ReturnToEditing(ctx context.Context, sessionID string) (domain.CheckoutState, error)
	OrderStatus(ctx context.Context, sessionID string, orderID int64, orderKey string) (OrderStatusResult, error)
}

type checkoutService struct {
	states  repositories.CheckoutRepository
	carts   repositories.CartRepository
	pricing *PricingEngine
	orders  OrderPlacer
	bridge  payments.Bridge
	logger  *zap.Logger
	now     func() time.Time
}

type CheckoutServiceDeps struct {
	States  repositories.CheckoutRepository
	Carts   repositories.CartRepository
	Pricing *PricingEngine
	Orders  OrderPlacer
	Bridge  payments.Bridge
	Logger  *zap.Logger
	Now     func() time.Time
}

func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.States == nil {
		return nil, errors.New("checkout service: checkout repository is required")
	}
	if deps.Carts == nil {
		return nil, errors.New("checkout service: cart repository is required")
	}
	if deps.Pricing == nil {
		return nil, errors.New("checkout service: pricing engine is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("checkout service: order placer is required")
	}
	if deps.Bridge == nil {
		return nil, errors.New("checkout service: payment bridge is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &checkoutService{
		states:  deps.States,
		carts:   deps.Carts,
		pricing: deps.Pricing,
		orders:  deps.Orders,
		bridge:  deps.Bridge,
		logger:  logger,
		now:     now,
	}, nil
}

// State loads the session's checkout state, defaulting to a fresh editing
// state for unknown sessions.
func (s *checkoutService) State(ctx context.Context, sessionID string) (domain.CheckoutState, error) {
	state, err := s.states.GetState(ctx, sessionID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return domain.NewCheckoutState(), nil
		}
		return domain.CheckoutState{}, fmt.Errorf("checkout: load state for session %s: %w", sessionID, err)
	}
	return state, nil
}

// Begin freezes the cart into an order snapshot and moves the session to
// awaiting placement. Re-running from awaiting placement refreshes the
// snapshot with the latest cart and customer details.
func (s *checkoutService) Begin(ctx context.Context, sessionID string, customer domain.CustomerDetails) (domain.CheckoutState, error) {
	state, err := s.State(ctx, sessionID)
	if err != nil {
		return domain.CheckoutState{}, err
	}

	cart, err := s.loadCart(ctx, sessionID)
	if err != nil {
		return domain.CheckoutState{}, err
	}
	if len(cart.Items) == 0 {
		return domain.CheckoutState{}, ErrCheckoutEmptyCart
	}

	breakdown, err := s.pricing.Quote(ctx, PriceQuoteCommand{
		Items:   cart.Items,
		Coupon:  cart.Coupon,
		Country: customer.Country,
	})
	if err != nil {
		return domain.CheckoutState{}, err
	}

	next := state
	if state.Phase != domain.PhaseAwaitingPlacement {
		next, err = state.Transition(domain.PhaseAwaitingPlacement, s.now().UTC())
		if err != nil {
			return domain.CheckoutState{}, err
		}
	}
	next.Snapshot = &domain.OrderSnapshot{
		Items:     cart.Items,
		Customer:  customer,
		Coupon:    cart.Coupon,
		Breakdown: breakdown,
		PlacedAt:  s.now().UTC(),
	}

	if err := s.states.SaveState(ctx, sessionID, next); err != nil {
		return domain.CheckoutState{}, fmt.Errorf("checkout: persist state for session %s: %w", sessionID, err)
	}
	return next, nil
}

// PlaceOrder creates the backend order from the frozen snapshot and moves
// the session to awaiting payment. A session that already holds a pending
// order keeps it, the backend order is never created twice.
func (s *checkoutService) PlaceOrder(ctx context.Context, sessionID string) (domain.CheckoutState, error) {
	state, err := s.State(ctx, sessionID)
	if err != nil {
		return domain.CheckoutState{}, err
	}
	if state.Phase != domain.PhaseAwaitingPlacement || state.Snapshot == nil {
		return domain.CheckoutState{}, ErrCheckoutNotReady
	}

	if !state.HasPendingOrder() {
		order, err := s.orders.CreateOrder(ctx, orderCreateFromSnapshot(*state.Snapshot))
		if err != nil {
			return domain.CheckoutState{}, fmt.Errorf("checkout: create order for session %s: %w", sessionID, err)
		}
		total, parseErr := decimal.NewFromString(strings.TrimSpace(order.Total))
		if parseErr != nil {
			s.logger.Warn("order total undecodable, falling back to quoted total",
				zap.Int64("order_id", order.ID), zap.Error(parseErr))
			total = state.Snapshot.Breakdown.Total
		}
		state.PendingOrder = &domain.PendingOrderReference{
			OrderID:  order.ID,
			OrderKey: order.OrderKey,
			Total:    total,
			Currency: order.Currency,
		}
	}

	next, err := state.Transition(domain.PhaseAwaitingPayment, s.now().UTC())
	if err != nil {
		return domain.CheckoutState{}, err
	}
	if err := s.states.SaveState(ctx, sessionID, next); err != nil {
		return domain.CheckoutState{}, fmt.Errorf("checkout: persist state for session %s: %w", sessionID, err)
	}
	return next, nil
}

// StartPayment runs the payment bridge for the pending order. Starting from
// the failed phase is the retry path and reuses the same pending order. A
// completed instruction settles the session and clears the cart, a redirect
// leaves the session awaiting the shopper's return.
func (s *checkoutService) StartPayment(ctx context.Context, sessionID string, method payments.Method) (payments.Instruction, domain.CheckoutState, error) {
	state, err := s.State(ctx, sessionID)
	if err != nil {
		return payments.Instruction{}, domain.CheckoutState{}, err
	}

	if state.Phase == domain.PhaseFailed {
		state, err = state.Transition(domain.PhaseAwaitingPayment, s.now().UTC())
		if err != nil {
			return payments.Instruction{}, domain.CheckoutState{}, err
		}
	}
	if state.Phase != domain.PhaseAwaitingPayment || state.Snapshot == nil || !state.HasPendingOrder() {
		return payments.Instruction{}, domain.CheckoutState{}, ErrCheckoutNotReady
	}

	instr, bridgeErr := s.bridge.Start(ctx, payments.StartRequest{
		OrderID:  state.PendingOrder.OrderID,
		OrderKey: state.PendingOrder.OrderKey,
		Method:   method,
		Amount:   state.PendingOrder.Total,
		Currency: state.PendingOrder.Currency,
	})
	if bridgeErr != nil {
		failed, trErr := state.Transition(domain.PhaseFailed, s.now().UTC())
		if trErr == nil {
			if saveErr := s.states.SaveState(ctx, sessionID, failed); saveErr != nil {
				s.logger.Error("failed to persist failed payment state",
					zap.String("session_id", sessionID), zap.Error(saveErr))
			}
			state = failed
		}
		s.logger.Error("payment start failed",
			zap.String("session_id", sessionID),
			zap.Int64("order_id", state.PendingOrder.OrderID),
			zap.String("method", string(method)),
			zap.Error(bridgeErr))
		return payments.Instruction{}, state, bridgeErr
	}

	if instr.Kind == payments.InstructionCompleted {
		state, err = s.settle(ctx, sessionID, state, instr)
		if err != nil {
			return payments.Instruction{}, domain.CheckoutState{}, err
		}
		return instr, state, nil
	}

	if err := s.states.SaveState(ctx, sessionID, state); err != nil {
		return payments.Instruction{}, domain.CheckoutState{}, fmt.Errorf("checkout: persist state for session %s: %w", sessionID, err)
	}
	return instr, state, nil
}

// ReturnToEditing abandons the placement and sends the session back to the
// cart. The snapshot and pending order reference are discarded, the cart
// itself is untouched. An abandoned backend order is never reused: the next
// placement creates a new order matching whatever the cart holds by then.
func (s *checkoutService) ReturnToEditing(ctx context.Context, sessionID string) (domain.CheckoutState, error) {
	state, err := s.State(ctx, sessionID)
	if err != nil {
		return domain.CheckoutState{}, err
	}
	if state.Phase == domain.PhaseEditing {
		return state, nil
	}
	next, err := state.Transition(domain.PhaseEditing, s.now().UTC())
	if err != nil {
		return domain.CheckoutState{}, err
	}
	next.Snapshot = nil
	next.PendingOrder = nil
	if err := s.states.SaveState(ctx, sessionID, next); err != nil {
		return domain.CheckoutState{}, fmt.Errorf("checkout: persist state for session %s: %w", sessionID, err)
	}
	return next, nil
}

// OrderStatus probes the backend for an order, guarding access with the
// order key. When the backend reports the session's pending order as paid
// the local state is reconciled to match.
func (s *checkoutService) OrderStatus(ctx context.Context, sessionID string, orderID int64, orderKey string) (OrderStatusResult, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return OrderStatusResult{}, fmt.Errorf("checkout: fetch order %d: %w", orderID, err)
	}
	if order.OrderKey == "" || order.OrderKey != orderKey {
		return OrderStatusResult{}, ErrOrderKeyMismatch
	}

	paid := order.DatePaid != nil || order.Status == "processing" || order.Status == "completed"
	total, err := decimal.NewFromString(strings.TrimSpace(order.Total))
	if err != nil {
		total = decimal.Zero
	}

	if paid {
		s.reconcile(ctx, sessionID, orderID)
	}

	return OrderStatusResult{
		OrderID:       order.ID,
		Status:        order.Status,
		Paid:          paid,
		Total:         total,
		Currency:      order.Currency,
		PaymentMethod: order.PaymentMethod,
	}, nil
}

// reconcile settles the local state when the backend confirmed payment for
// the session's pending order, e.g. after a hosted page redirect.
func (s *checkoutService) reconcile(ctx context.Context, sessionID string, orderID int64) {
	state, err := s.State(ctx, sessionID)
	if err != nil {
		s.logger.Warn("reconcile skipped, state unavailable",
			zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	if state.Phase != domain.PhaseAwaitingPayment || !state.HasPendingOrder() || state.PendingOrder.OrderID != orderID {
		return
	}
	next, err := state.Transition(domain.PhasePaid, s.now().UTC())
	if err != nil {
		return
	}
	next.CompletedOrderID = orderID
	// The snapshot is consumed, the session keeps only the order marker
	// and is free to start a new purchase.
	if err := s.states.SaveState(ctx, sessionID, next.Reset(s.now().UTC())); err != nil {
		s.logger.Error("reconcile failed to persist state",
			zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	if err := s.carts.DeleteCart(ctx, sessionID); err != nil {
		s.logger.Warn("reconcile failed to clear cart",
			zap.String("session_id", sessionID), zap.Error(err))
	}
	s.logger.Info("checkout state reconciled from backend",
		zap.String("session_id", sessionID), zap.Int64("order_id", orderID))
}

// settle records the successful payment. The returned state reports the
// paid phase for the receipt; the persisted state is reset to editing with
// only the completed order marker, the snapshot is consumed.
func (s *checkoutService) settle(ctx context.Context, sessionID string, state domain.CheckoutState, instr payments.Instruction) (domain.CheckoutState, error) {
	next, err := state.Transition(domain.PhasePaid, s.now().UTC())
	if err != nil {
		return domain.CheckoutState{}, err
	}
	next.CompletedOrderID = instr.Receipt.OrderID
	next.Snapshot = nil
	next.PendingOrder = nil
	if err := s.states.SaveState(ctx, sessionID, next.Reset(s.now().UTC())); err != nil {
		return domain.CheckoutState{}, fmt.Errorf("checkout: persist state for session %s: %w", sessionID, err)
	}
	if err := s.carts.DeleteCart(ctx, sessionID); err != nil {
		s.logger.Warn("failed to clear cart after settlement",
			zap.String("session_id", sessionID), zap.Error(err))
	}
	return next, nil
}

func (s *checkoutService) loadCart(ctx context.Context, sessionID string) (domain.Cart, error) {
	cart, err := s.carts.GetCart(ctx, sessionID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return domain.Cart{SessionID: sessionID}, nil
		}
		return domain.Cart{}, fmt.Errorf("checkout: load cart for session %s: %w", sessionID, err)
	}
	return cart, nil
}

// orderCreateFromSnapshot maps the frozen snapshot to the backend payload.
func orderCreateFromSnapshot(snapshot domain.OrderSnapshot) commerce.OrderCreate {
	payload := commerce.OrderCreate{
		Billing: commerce.Billing{
			FirstName: snapshot.Customer.FirstName,
			LastName:  snapshot.Customer.LastName,
			Address1:  snapshot.Customer.Address1,
			Address2:  snapshot.Customer.Address2,
			City:      snapshot.Customer.City,
			Postcode:  snapshot.Customer.Postcode,
			Country:   snapshot.Customer.Country,
			Email:     snapshot.Customer.Email,
			Phone:     snapshot.Customer.Phone,
		},
	}
	for _, item := range snapshot.Items {
		payload.LineItems = append(payload.LineItems, commerce.OrderLineItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}
	if snapshot.Coupon != nil {
		payload.CouponLines = []commerce.CouponLine{{Code: snapshot.Coupon.Code}}
	}
	if snapshot.Breakdown.Shipping.IsPositive() {
		payload.ShippingLines = []commerce.ShippingLine{{
			MethodID:    "flat_rate",
			MethodTitle: "Standaard verzending",
			Total:       snapshot.Breakdown.Shipping.StringFixed(2),
		}}
	}
	return payload
}
