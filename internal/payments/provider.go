package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Mode selects how the bridge settles payments.
type Mode string

const (
	// ModeRedirect hands the shopper a hosted payment page URL.
	ModeRedirect Mode = "redirect"
	// ModeSimulate settles the order directly without a PSP round trip.
	// Used for test environments.
	ModeSimulate Mode = "simulate"
)

// ParseMode normalises a raw mode string, defaulting to redirect.
func ParseMode(raw string) Mode {
	if Mode(raw) == ModeSimulate {
		return ModeSimulate
	}
	return ModeRedirect
}

// InstructionKind tells the caller what to do next with an Instruction.
type InstructionKind string

const (
	// InstructionRedirect means the shopper must be sent to RedirectURL.
	InstructionRedirect InstructionKind = "redirect"
	// InstructionCompleted means the payment settled in-line.
	InstructionCompleted InstructionKind = "completed"
)

// StartRequest identifies the pending order a payment is started for.
type StartRequest struct {
	OrderID  int64
	OrderKey string
	Method   Method
	Amount   decimal.Decimal
	Currency string
}

// Receipt reports the settled order after an in-line completion.
type Receipt struct {
	OrderID       int64
	Status        string
	TransactionID string
	PaidAt        time.Time
}

// Instruction is the outcome of starting a payment.
type Instruction struct {
	Kind        InstructionKind
	Method      Method
	RedirectURL string
	Receipt     Receipt
}

// Bridge starts payments against the commerce backend. Implementations
// decide between redirecting to a hosted page and settling in-line based on
// their configured Mode.
type Bridge interface {
	Start(ctx context.Context, req StartRequest) (Instruction, error)
}

// Error wraps a payment failure. The wrapped error is diagnostic detail for
// logs, shopper-facing wording is resolved by the transport layer.
type Error struct {
	OrderID int64
	Method  Method
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("payments: order %d via %s: %v", e.OrderID, e.Method, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
