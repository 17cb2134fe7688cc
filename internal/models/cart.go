package models

// CartLineItem is a single product line in the cart. ID is the merge
// key: at most one line exists per product code.
type CartLineItem struct {
	ID       string            `json:"id"`
	Name     string            `json:"name,omitempty"`
	Image    string            `json:"image,omitempty"`
	Price    Money             `json:"price"`
	Qty      int               `json:"qty"`
	Stock    *int              `json:"stock,omitempty"` // nil means unbounded
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Cart is the persisted cart document: ordered line items plus an
// optional applied coupon.
type Cart struct {
	Items         []CartLineItem `json:"items"`
	AppliedCoupon *Coupon        `json:"appliedCoupon,omitempty"`
}

// Totals is the computed view of a cart.
//
// Discount is reported as-is for fixed coupons even when it exceeds the
// subtotal; only Total is clamped at zero.
type Totals struct {
	Count    int   `json:"count"`
	Subtotal Money `json:"subtotal"`
	Discount Money `json:"discount"`
	Total    Money `json:"total"`
}
