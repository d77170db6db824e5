package payments

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noodklaar/storefront/internal/commerce"
)

// OrderGateway is the slice of the commerce client the bridge needs.
type OrderGateway interface {
	GetOrder(ctx context.Context, id int64) (commerce.Order, error)
	UpdateOrder(ctx context.Context, id int64, payload commerce.OrderUpdate) (commerce.Order, error)
}

// WooCommerceBridge settles payments through the commerce backend's hosted
// order-pay page, or marks orders paid directly in simulate mode.
type WooCommerceBridge struct {
	gateway OrderGateway
	baseURL string
	mode    Mode
	logger  *zap.Logger
	now     func() time.Time
}

type WooCommerceBridgeDeps struct {
	Gateway OrderGateway
	BaseURL string
	Mode    Mode
	Logger  *zap.Logger
	Now     func() time.Time
}

func NewWooCommerceBridge(deps WooCommerceBridgeDeps) (*WooCommerceBridge, error) {
	if deps.Gateway == nil {
		return nil, errors.New("payments: order gateway is required")
	}
	base := strings.TrimRight(strings.TrimSpace(deps.BaseURL), "/")
	if base == "" {
		return nil, errors.New("payments: base url is required")
	}
	mode := deps.Mode
	if mode == "" {
		mode = ModeRedirect
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &WooCommerceBridge{
		gateway: deps.Gateway,
		baseURL: base,
		mode:    mode,
		logger:  logger,
		now:     now,
	}, nil
}

func (b *WooCommerceBridge) Start(ctx context.Context, req StartRequest) (Instruction, error) {
	if req.OrderID <= 0 {
		return Instruction{}, &Error{OrderID: req.OrderID, Method: req.Method, Err: errors.New("missing order id")}
	}
	if b.mode == ModeSimulate {
		return b.settle(ctx, req)
	}
	return b.redirect(ctx, req)
}

// redirect records the chosen method on the order and builds the hosted
// order-pay URL.
func (b *WooCommerceBridge) redirect(ctx context.Context, req StartRequest) (Instruction, error) {
	update := commerce.OrderUpdate{
		PaymentMethod:      req.Method.BackendID(),
		PaymentMethodTitle: req.Method.Title(),
		MetaData: []commerce.MetaData{
			{Key: "_payment_method_selected", Value: string(req.Method)},
		},
	}
	if _, err := b.gateway.UpdateOrder(ctx, req.OrderID, update); err != nil {
		return Instruction{}, &Error{OrderID: req.OrderID, Method: req.Method, Err: err}
	}

	orderKey := req.OrderKey
	if orderKey == "" {
		order, err := b.gateway.GetOrder(ctx, req.OrderID)
		if err != nil {
			return Instruction{}, &Error{OrderID: req.OrderID, Method: req.Method, Err: err}
		}
		orderKey = order.OrderKey
	}

	payURL := fmt.Sprintf("%s/checkout/order-pay/%d/?pay_for_order=true&key=%s&payment_method=%s",
		b.baseURL, req.OrderID, url.QueryEscape(orderKey), req.Method.BackendID())
	if subtype := req.Method.BackendSubtype(); subtype != "" {
		payURL += "&payment_method_type=" + subtype
	}

	b.logger.Info("payment redirect issued",
		zap.Int64("order_id", req.OrderID),
		zap.String("method", string(req.Method)))
	return Instruction{Kind: InstructionRedirect, Method: req.Method, RedirectURL: payURL}, nil
}

// settle marks the order paid with a synthetic transaction id. The id embeds
// the timestamp and order id so simulated settlements stay traceable.
func (b *WooCommerceBridge) settle(ctx context.Context, req StartRequest) (Instruction, error) {
	paidAt := b.now().UTC()
	txID := "test_" + strconv.FormatInt(paidAt.UnixMilli(), 10) + "_" + strconv.FormatInt(req.OrderID, 10)
	update := commerce.OrderUpdate{
		PaymentMethod:      req.Method.BackendID(),
		PaymentMethodTitle: req.Method.Title(),
		SetPaid:            true,
		Status:             "processing",
		TransactionID:      txID,
		DatePaid:           paidAt.Format(time.RFC3339),
		MetaData: []commerce.MetaData{
			{Key: "_payment_method_id", Value: string(req.Method)},
			{Key: "_payment_intent_id", Value: "pi_" + txID},
		},
	}
	order, err := b.gateway.UpdateOrder(ctx, req.OrderID, update)
	if err != nil {
		b.logger.Error("simulated settlement failed",
			zap.Int64("order_id", req.OrderID),
			zap.String("method", string(req.Method)),
			zap.Error(err))
		return Instruction{}, &Error{OrderID: req.OrderID, Method: req.Method, Err: err}
	}

	b.logger.Info("payment settled",
		zap.Int64("order_id", req.OrderID),
		zap.String("method", string(req.Method)),
		zap.String("transaction_id", txID))
	return Instruction{
		Kind:   InstructionCompleted,
		Method: req.Method,
		Receipt: Receipt{
			OrderID:       order.ID,
			Status:        order.Status,
			TransactionID: txID,
			PaidAt:        paidAt,
		},
	}, nil
}
