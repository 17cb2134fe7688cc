package models

import "time"

// Session is the authenticated-user record kept in the TTL store under
// the userSession key. Checkout reads the lifetime discount fields.
type Session struct {
	Token               string    `json:"token"`
	UserID              string    `json:"userId"`
	IsAuthenticated     bool      `json:"isAuthenticated"`
	LoginTime           time.Time `json:"loginTime"`
	HasLifetimeDiscount bool      `json:"hasLifetimeDiscount"`
	DiscountPercentage  int       `json:"discountPercentage"`
}
