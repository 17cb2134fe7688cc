package models

// LoyaltyLevel is one tier in the loyalty program. Tiers partition the
// non-negative point range: no gaps, no overlaps, exactly one tier per
// point total. MaxPoints nil marks the open-ended top tier.
type LoyaltyLevel struct {
	Name      string  `json:"name"`
	MinPoints Points  `json:"minPoints"`
	MaxPoints *Points `json:"maxPoints"`
}

// Contains reports whether p falls inside the tier's inclusive range.
func (l LoyaltyLevel) Contains(p Points) bool {
	if p < l.MinPoints {
		return false
	}
	return l.MaxPoints == nil || p <= *l.MaxPoints
}

// PointsRule is one purchase-amount bracket of the earning table. Among
// all rules whose MinAmount does not exceed the purchase amount, the one
// with the largest MinAmount applies; brackets are not summed.
type PointsRule struct {
	MinAmount     Money   `json:"minAmount"`
	PointsPerPeso float64 `json:"pointsPerPeso"`
}
