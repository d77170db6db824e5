package services

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CouponRejectReason categorises why a coupon could not be applied.
type CouponRejectReason string

const (
	CouponReasonEmptyCode        CouponRejectReason = "empty_code"
	CouponReasonNotFound         CouponRejectReason = "not_found"
	CouponReasonExpired          CouponRejectReason = "expired"
	CouponReasonBelowMinimum     CouponRejectReason = "below_minimum"
	CouponReasonAboveMaximum     CouponRejectReason = "above_maximum"
	CouponReasonUsageExceeded    CouponRejectReason = "usage_exceeded"
	CouponReasonValidationFailed CouponRejectReason = "validation_failed"
)

// CouponError is a rejected coupon application. Bound carries the violated
// order amount limit for the minimum and maximum reasons so callers can
// render it. Message rendering for end users lives in the i18n layer.
type CouponError struct {
	Code   string
	Reason CouponRejectReason
	Bound  decimal.Decimal
}

func (e *CouponError) Error() string {
	switch e.Reason {
	case CouponReasonBelowMinimum, CouponReasonAboveMaximum:
		return fmt.Sprintf("coupon %q rejected: %s (bound %s)", e.Code, e.Reason, e.Bound.String())
	default:
		return fmt.Sprintf("coupon %q rejected: %s", e.Code, e.Reason)
	}
}
