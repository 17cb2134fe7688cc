package models

import "time"

// PurchaseStatusCompleted is the only status a recorder writes today.
const PurchaseStatusCompleted = "completed"

// PurchaseRecord is an immutable snapshot of a successful checkout.
type PurchaseRecord struct {
	ID            string         `json:"id"`
	Timestamp     time.Time      `json:"timestamp"`
	Items         []CartLineItem `json:"items"`
	Count         int            `json:"count"`
	Subtotal      Money          `json:"subtotal"`
	Discount      Money          `json:"discount"`
	Total         Money          `json:"total"`
	PaymentMethod string         `json:"paymentMethod"`
	PointsEarned  Points         `json:"pointsEarned"`
	Status        string         `json:"status"`
}
