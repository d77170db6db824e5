package domain

import (
	"fmt"
	"time"
)

// CheckoutPhase enumerates the states of the checkout handoff sequence.
type CheckoutPhase string

const (
	// PhaseEditing means the cart is still mutable and no order exists yet.
	PhaseEditing CheckoutPhase = "editing"
	// PhaseAwaitingPlacement means the checkout form was submitted and the
	// backend order is being created.
	PhaseAwaitingPlacement CheckoutPhase = "awaiting_placement"
	// PhaseAwaitingPayment means the backend order exists and the session
	// carries a snapshot plus a pending order reference.
	PhaseAwaitingPayment CheckoutPhase = "awaiting_payment"
	// PhasePaid is the terminal success state of a checkout attempt. The
	// persisted session state is reset to editing once payment resolves,
	// so the session can start a new purchase.
	PhasePaid CheckoutPhase = "paid"
	// PhaseFailed records a payment failure; retry re-enters awaiting_payment
	// with the same snapshot and order reference.
	PhaseFailed CheckoutPhase = "failed"
)

var checkoutTransitions = map[CheckoutPhase][]CheckoutPhase{
	PhaseEditing:           {PhaseAwaitingPlacement},
	PhaseAwaitingPlacement: {PhaseAwaitingPayment, PhaseEditing},
	PhaseAwaitingPayment:   {PhasePaid, PhaseFailed, PhaseEditing},
	PhaseFailed:            {PhaseAwaitingPayment, PhaseEditing},
	PhasePaid:              {},
}

// ErrIllegalTransition reports a checkout transition outside the state machine.
type ErrIllegalTransition struct {
	From CheckoutPhase
	To   CheckoutPhase
}

// Error implements the error interface.
func (e ErrIllegalTransition) Error() string {
	return fmt.Sprintf("checkout: illegal transition %s -> %s", e.From, e.To)
}

// CheckoutState is the per-session record the sequencer persists between
// pages. A snapshot and pending order reference are present exactly in the
// awaiting_payment and failed phases.
type CheckoutState struct {
	Phase            CheckoutPhase
	Snapshot         *OrderSnapshot
	PendingOrder     *PendingOrderReference
	CompletedOrderID int64
	UpdatedAt        time.Time
}

// NewCheckoutState returns the initial editing state.
func NewCheckoutState() CheckoutState {
	return CheckoutState{Phase: PhaseEditing}
}

// Transition moves the state to the next phase, enforcing the machine's edges.
func (s CheckoutState) Transition(next CheckoutPhase, at time.Time) (CheckoutState, error) {
	from := s.Phase
	if from == "" {
		from = PhaseEditing
	}
	allowed := false
	for _, candidate := range checkoutTransitions[from] {
		if candidate == next {
			allowed = true
			break
		}
	}
	if !allowed {
		return s, ErrIllegalTransition{From: from, To: next}
	}
	s.Phase = next
	s.UpdatedAt = at.UTC()
	return s, nil
}

// Reset returns the fresh editing state a session re-enters after a
// checkout attempt resolves. Only the completed order marker survives.
func (s CheckoutState) Reset(at time.Time) CheckoutState {
	return CheckoutState{
		Phase:            PhaseEditing,
		CompletedOrderID: s.CompletedOrderID,
		UpdatedAt:        at.UTC(),
	}
}

// HasPendingOrder reports whether the state carries a usable snapshot and
// order reference for the payment step.
func (s CheckoutState) HasPendingOrder() bool {
	return s.Snapshot != nil && s.PendingOrder != nil && s.PendingOrder.OrderID > 0
}
