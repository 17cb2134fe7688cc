package models

// Money is a monetary amount in whole pesos. All cart and discount
// arithmetic is integer-only; there is no floating point in the money
// path.
type Money int64

// Points is a loyalty point balance or delta. Point awards are floored
// to whole points at the single place they are computed.
type Points int64

// PercentOf returns pct percent of m, rounded half-up.
func (m Money) PercentOf(pct int64) Money {
	return Money((int64(m)*pct + 50) / 100)
}
