// Package coupon resolves and validates discount codes from the
// general coupon table and per-user coupon lists.
package coupon

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/levelup-gamer/storefront/internal/kv"
	"github.com/levelup-gamer/storefront/internal/models"
)

var (
	// ErrInvalid covers both unknown codes and already-used coupons;
	// callers surface the same message for either.
	ErrInvalid           = errors.New("coupon: invalid or already used")
	ErrExpired           = errors.New("coupon: expired")
	ErrMinPurchaseNotMet = errors.New("coupon: minimum purchase not met")
)

// UserCouponsKey returns the store key for a user's personal coupons.
func UserCouponsKey(userID string) string {
	return "userCoupons_" + userID
}

// Registry looks up coupons by code: general table first, then the
// user's personal list. A bloom filter over the general codes
// short-circuits definite misses before the map lookup.
type Registry struct {
	mu      sync.RWMutex
	store   kv.Store
	log     *slog.Logger
	general map[string]models.Coupon
	filter  *bloom.BloomFilter
}

// NewRegistry creates an empty registry bound to the given store.
func NewRegistry(store kv.Store, log *slog.Logger) *Registry {
	return &Registry{
		store:   store,
		log:     log,
		general: make(map[string]models.Coupon),
	}
}

// LoadGeneral replaces the general coupon table and rebuilds the bloom
// filter.
func (r *Registry) LoadGeneral(coupons []models.Coupon) {
	general := make(map[string]models.Coupon, len(coupons))
	filter := bloom.NewWithEstimates(uint(len(coupons))+1, 0.01)
	for _, c := range coupons {
		general[c.Code] = c
		filter.AddString(c.Code)
	}

	r.mu.Lock()
	r.general = general
	r.filter = filter
	r.mu.Unlock()
}

// LoadGeneralFile loads the general coupon table from a static JSON
// file.
func (r *Registry) LoadGeneralFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var coupons []models.Coupon
	if err := json.Unmarshal(raw, &coupons); err != nil {
		return err
	}

	r.LoadGeneral(coupons)
	return nil
}

// UserCoupons returns the user's personal coupon list. An unreadable
// list degrades to empty.
func (r *Registry) UserCoupons(ctx context.Context, userID string) []models.Coupon {
	list, err := kv.GetJSON[[]models.Coupon](ctx, r.store, UserCouponsKey(userID))
	if err != nil {
		if !errors.Is(err, kv.ErrKeyNotFound) {
			r.log.Warn("user coupons unreadable", "user_id", userID, "error", err)
		}
		return nil
	}
	return list
}

// AddUserCoupon appends a coupon to the user's personal list.
func (r *Registry) AddUserCoupon(ctx context.Context, userID string, c models.Coupon) error {
	_, err := kv.Update(ctx, r.store, UserCouponsKey(userID), func(list []models.Coupon) []models.Coupon {
		return append(list, c)
	})
	return err
}

// Lookup resolves a code, checking the general table before the user's
// personal list. Codes are case-sensitive. The second return value
// reports whether the coupon is user-scoped.
func (r *Registry) Lookup(ctx context.Context, code, userID string) (models.Coupon, bool, error) {
	r.mu.RLock()
	// Bloom filter misses are definite; hits still need the map since
	// the filter admits false positives.
	if r.filter != nil && r.filter.TestString(code) {
		if c, ok := r.general[code]; ok {
			r.mu.RUnlock()
			return c, false, nil
		}
	}
	r.mu.RUnlock()

	if userID != "" {
		for _, c := range r.UserCoupons(ctx, userID) {
			if c.Code == code {
				return c, true, nil
			}
		}
	}

	return models.Coupon{}, false, ErrInvalid
}

// Validate checks eligibility in the authoritative order: used, then
// expired, then minimum purchase.
func (r *Registry) Validate(c models.Coupon, subtotal models.Money, now time.Time) error {
	if c.IsUsed {
		return ErrInvalid
	}
	if now.After(c.ExpiresAt) {
		return ErrExpired
	}
	if subtotal < c.MinPurchase {
		return ErrMinPurchaseNotMet
	}
	return nil
}

// MarkUsed flips IsUsed on a user-scoped coupon and persists the list.
// General coupons are shared and never mutated.
func (r *Registry) MarkUsed(ctx context.Context, userID, code string) error {
	_, err := kv.Update(ctx, r.store, UserCouponsKey(userID), func(list []models.Coupon) []models.Coupon {
		for i := range list {
			if list[i].Code == code {
				list[i].IsUsed = true
			}
		}
		return list
	})
	return err
}
