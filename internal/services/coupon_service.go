package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noodklaar/storefront/internal/commerce"
	domain "github.com/noodklaar/storefront/internal/domain"
)

// CouponSource fetches coupon candidates for a code from the commerce backend.
type CouponSource interface {
	CouponsByCode(ctx context.Context, code string) ([]commerce.Coupon, error)
}

// CouponService validates discount codes against cart subtotals.
type CouponService interface {
	Validate(ctx context.Context, code string, cartSubtotal decimal.Decimal) (domain.Coupon, error)
}

type couponService struct {
	source CouponSource
	logger *zap.Logger
	now    func() time.Time
}

type CouponServiceDeps struct {
	Source CouponSource
	Logger *zap.Logger
	Now    func() time.Time
}

func NewCouponService(deps CouponServiceDeps) (CouponService, error) {
	if deps.Source == nil {
		return nil, errors.New("coupon service: source is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &couponService{source: deps.Source, logger: logger, now: now}, nil
}

// Validate resolves the code to a coupon and checks expiry, usage and order
// amount bounds. All rejections come back as *CouponError so the transport
// layer can translate them for the shopper.
func (s *couponService) Validate(ctx context.Context, code string, cartSubtotal decimal.Decimal) (domain.Coupon, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return domain.Coupon{}, &CouponError{Reason: CouponReasonEmptyCode}
	}

	candidates, err := s.source.CouponsByCode(ctx, trimmed)
	if err != nil {
		s.logger.Error("coupon lookup failed", zap.String("code", trimmed), zap.Error(err))
		return domain.Coupon{}, &CouponError{Code: trimmed, Reason: CouponReasonValidationFailed}
	}
	if len(candidates) == 0 {
		return domain.Coupon{}, &CouponError{Code: trimmed, Reason: CouponReasonNotFound}
	}

	selected := pickCandidate(candidates, trimmed)
	coupon, err := mapCoupon(selected)
	if err != nil {
		s.logger.Error("coupon payload undecodable",
			zap.String("code", trimmed), zap.Int64("coupon_id", selected.ID), zap.Error(err))
		return domain.Coupon{}, &CouponError{Code: trimmed, Reason: CouponReasonValidationFailed}
	}

	if coupon.ExpiresAt != nil && s.now().After(*coupon.ExpiresAt) {
		return domain.Coupon{}, &CouponError{Code: trimmed, Reason: CouponReasonExpired}
	}
	if coupon.MinimumAmount.IsPositive() && cartSubtotal.LessThan(coupon.MinimumAmount) {
		return domain.Coupon{}, &CouponError{Code: trimmed, Reason: CouponReasonBelowMinimum, Bound: coupon.MinimumAmount}
	}
	if coupon.MaximumAmount.IsPositive() && cartSubtotal.GreaterThan(coupon.MaximumAmount) {
		return domain.Coupon{}, &CouponError{Code: trimmed, Reason: CouponReasonAboveMaximum, Bound: coupon.MaximumAmount}
	}
	// A zero or absent usage limit means unlimited redemptions.
	if coupon.UsageLimit > 0 && coupon.UsageCount >= coupon.UsageLimit {
		return domain.Coupon{}, &CouponError{Code: trimmed, Reason: CouponReasonUsageExceeded}
	}

	return coupon, nil
}

// pickCandidate prefers the candidate whose code matches case-insensitively,
// the backend may return near matches. Falls back to the first candidate.
func pickCandidate(candidates []commerce.Coupon, code string) commerce.Coupon {
	for _, c := range candidates {
		if strings.EqualFold(strings.TrimSpace(c.Code), code) {
			return c
		}
	}
	return candidates[0]
}

func mapCoupon(wire commerce.Coupon) (domain.Coupon, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(wire.Amount))
	if err != nil {
		return domain.Coupon{}, err
	}
	coupon := domain.Coupon{
		ID:           wire.ID,
		Code:         wire.Code,
		DiscountType: domain.ParseDiscountType(wire.DiscountType),
		Amount:       amount,
		Description:  wire.Description,
		UsageCount:   wire.UsageCount,
	}
	if wire.UsageLimit != nil {
		coupon.UsageLimit = *wire.UsageLimit
	}
	coupon.MinimumAmount = parseBound(wire.MinimumAmount)
	coupon.MaximumAmount = parseBound(wire.MaximumAmount)
	if wire.DateExpires != nil && strings.TrimSpace(*wire.DateExpires) != "" {
		expires, err := parseBackendTime(*wire.DateExpires)
		if err != nil {
			return domain.Coupon{}, err
		}
		coupon.ExpiresAt = &expires
	}
	return coupon, nil
}

// parseBound treats empty or unparseable bound strings as "no bound".
func parseBound(raw string) decimal.Decimal {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero
	}
	bound, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero
	}
	return bound
}

// parseBackendTime accepts the backend's local-naive timestamp format as
// well as RFC 3339.
func parseBackendTime(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05", trimmed)
}
