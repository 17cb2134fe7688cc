package models

import "time"

// CouponType discriminates how a coupon's Value is interpreted.
type CouponType string

const (
	// CouponTypePercentage takes Value as a percent (0-100) of the subtotal.
	CouponTypePercentage CouponType = "percentage"
	// CouponTypeFixed takes Value as an absolute peso amount.
	CouponTypeFixed CouponType = "fixed"
)

// Coupon is a discount code. Codes are case-sensitive lookup keys.
type Coupon struct {
	Code        string     `json:"code"`
	Type        CouponType `json:"type"`
	Value       int64      `json:"value"`
	MinPurchase Money      `json:"minPurchase"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	IsUsed      bool       `json:"isUsed"`
}

// Discount computes the coupon's discount against a subtotal. The
// result is not clamped to the subtotal.
func (c Coupon) Discount(subtotal Money) Money {
	switch c.Type {
	case CouponTypePercentage:
		return subtotal.PercentOf(c.Value)
	case CouponTypeFixed:
		return Money(c.Value)
	default:
		return 0
	}
}
