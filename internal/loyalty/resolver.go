// Package loyalty classifies point balances into tiers and computes
// point awards for purchases.
package loyalty

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/levelup-gamer/storefront/internal/kv"
	"github.com/levelup-gamer/storefront/internal/models"
)

// PointsKey is the store key holding the current point balance.
const PointsKey = "userPoints"

// fallbackRate is the earning rate used when no rules table is loaded.
const fallbackRate = 0.1

func pts(n int64) *models.Points {
	p := models.Points(n)
	return &p
}

// FallbackLevels is the hardcoded tier table used when the configured
// level table fails to load.
var FallbackLevels = []models.LoyaltyLevel{
	{Name: "Bronze", MinPoints: 0, MaxPoints: pts(999)},
	{Name: "Silver", MinPoints: 1000, MaxPoints: pts(2499)},
	{Name: "Gold", MinPoints: 2500, MaxPoints: pts(4999)},
	{Name: "Platinum", MinPoints: 5000, MaxPoints: nil},
}

// Config carries the loyalty tables. Empty Levels or Rules fall back to
// the hardcoded defaults; a zero BaseMultiplier means 1.0.
type Config struct {
	Levels         []models.LoyaltyLevel
	Rules          []models.PointsRule
	BaseMultiplier float64
}

// Progress describes how far a balance is into its tier relative to the
// next one.
type Progress struct {
	Percentage         float64       `json:"percentage"`
	PointsToNext       models.Points `json:"pointsToNext"`
	CurrentLevelPoints models.Points `json:"currentLevelPoints"`
	TotalPointsNeeded  models.Points `json:"totalPointsNeeded"`
	IsMaxLevel         bool          `json:"isMaxLevel"`
}

// Subscriber receives the new balance after AddPoints.
type Subscriber func(models.Points)

// Resolver owns the loyalty tables and the persisted point balance.
type Resolver struct {
	mu         sync.Mutex
	store      kv.Store
	log        *slog.Logger
	levels     []models.LoyaltyLevel
	rules      []models.PointsRule
	multiplier float64
	balance    models.Points
	subs       map[int]Subscriber
	nextSub    int
}

// NewResolver creates a resolver bound to the given store, loading any
// persisted balance. An unreadable balance starts at zero.
func NewResolver(ctx context.Context, store kv.Store, cfg Config, log *slog.Logger) *Resolver {
	levels := cfg.Levels
	if len(levels) == 0 {
		levels = FallbackLevels
	}
	levels = append([]models.LoyaltyLevel(nil), levels...)
	sort.Slice(levels, func(i, j int) bool { return levels[i].MinPoints < levels[j].MinPoints })

	rules := append([]models.PointsRule(nil), cfg.Rules...)
	sort.Slice(rules, func(i, j int) bool { return rules[i].MinAmount < rules[j].MinAmount })

	multiplier := cfg.BaseMultiplier
	if multiplier == 0 {
		multiplier = 1.0
	}

	r := &Resolver{
		store:      store,
		log:        log,
		levels:     levels,
		rules:      rules,
		multiplier: multiplier,
		subs:       make(map[int]Subscriber),
	}

	balance, err := kv.GetJSON[models.Points](ctx, store, PointsKey)
	switch {
	case err == nil:
		r.balance = balance
	case errors.Is(err, kv.ErrKeyNotFound):
		// no balance yet
	default:
		log.Warn("persisted points unreadable, starting at zero", "error", err)
	}
	return r
}

// LevelForPoints returns the tier whose range contains the given
// balance. The tier table partitions the non-negative integers, so
// exactly one tier matches any valid balance.
func (r *Resolver) LevelForPoints(p models.Points) models.LoyaltyLevel {
	for _, level := range r.levels {
		if level.Contains(p) {
			return level
		}
	}
	// Unreachable with a well-formed table; pin negative balances to
	// the lowest tier.
	return r.levels[0]
}

// PointsForPurchase computes the points earned for a purchase amount:
// the qualifying rule with the largest MinAmount wins, brackets are not
// summed, and the result is floored to whole points. With no rules
// table loaded the flat fallback rate applies.
func (r *Resolver) PointsForPurchase(amount models.Money) models.Points {
	if amount <= 0 {
		return 0
	}

	rate := fallbackRate
	if len(r.rules) > 0 {
		rate = -1
		for _, rule := range r.rules {
			if rule.MinAmount <= amount {
				rate = rule.PointsPerPeso
			}
		}
		if rate < 0 {
			return 0
		}
	}

	return models.Points(math.Floor(float64(amount) * rate * r.multiplier))
}

// ProgressToNextLevel reports progress from the current tier toward the
// next. At the top tier the percentage is 100 and there is nothing left
// to earn.
func (r *Resolver) ProgressToNextLevel(p models.Points) Progress {
	current := r.LevelForPoints(p)

	var next *models.LoyaltyLevel
	for i := range r.levels {
		if r.levels[i].MinPoints > current.MinPoints {
			next = &r.levels[i]
			break
		}
	}

	if next == nil {
		return Progress{
			Percentage:         100,
			CurrentLevelPoints: p - current.MinPoints,
			IsMaxLevel:         true,
		}
	}

	needed := next.MinPoints - current.MinPoints
	into := p - current.MinPoints

	pct := float64(into) / float64(needed) * 100
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	return Progress{
		Percentage:         pct,
		PointsToNext:       next.MinPoints - p,
		CurrentLevelPoints: into,
		TotalPointsNeeded:  needed,
	}
}

// Balance returns the current point balance.
func (r *Resolver) Balance() models.Points {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balance
}

// Subscribe registers fn for balance-change notifications and returns a
// cancel function.
func (r *Resolver) Subscribe(fn Subscriber) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, id)
	}
}

// AddPoints credits (or, with a negative delta, spends) points. The
// balance never goes below zero. The new balance is persisted
// best-effort and subscribers are notified.
func (r *Resolver) AddPoints(ctx context.Context, delta models.Points) models.Points {
	r.mu.Lock()
	r.balance += delta
	if r.balance < 0 {
		r.balance = 0
	}
	balance := r.balance

	if err := kv.SetJSON(ctx, r.store, PointsKey, balance); err != nil {
		r.log.Warn("failed to persist points", "error", err)
	}

	subs := make([]Subscriber, 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	r.mu.Unlock()

	for _, fn := range subs {
		fn(balance)
	}
	return balance
}
