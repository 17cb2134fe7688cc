// Package checkout is the purchase recorder: the authoritative coupon
// application path and the checkout flow that snapshots the cart,
// credits loyalty points, and clears the ledger.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/levelup-gamer/storefront/internal/cart"
	"github.com/levelup-gamer/storefront/internal/coupon"
	"github.com/levelup-gamer/storefront/internal/kv"
	"github.com/levelup-gamer/storefront/internal/loyalty"
	"github.com/levelup-gamer/storefront/internal/models"
	"github.com/levelup-gamer/storefront/internal/session"
)

var ErrEmptyCart = errors.New("checkout: cart is empty")

// HistoryKey is the store key holding the purchase history.
const HistoryKey = "purchaseHistory"

// DefaultHistoryCap bounds the purchase history; the oldest records are
// dropped past it.
const DefaultHistoryCap = 50

// Result is returned from a successful checkout.
type Result struct {
	Record       models.PurchaseRecord `json:"record"`
	PointsEarned models.Points         `json:"pointsEarned"`
	NewBalance   models.Points         `json:"newBalance"`
	Level        string                `json:"level"`
}

// Service coordinates the ledger, loyalty resolver, coupon registry,
// and session record at checkout time.
type Service struct {
	ledger     *cart.Ledger
	loyalty    *loyalty.Resolver
	coupons    *coupon.Registry
	sessions   *session.Manager
	store      kv.Store
	log        *slog.Logger
	historyCap int
	now        func() time.Time
}

// NewService wires a checkout service. historyCap values below 1 take
// the default cap. sessions may be nil when no session layer is wired.
func NewService(
	ledger *cart.Ledger,
	resolver *loyalty.Resolver,
	registry *coupon.Registry,
	sessions *session.Manager,
	store kv.Store,
	historyCap int,
	log *slog.Logger,
) *Service {
	if historyCap < 1 {
		historyCap = DefaultHistoryCap
	}
	return &Service{
		ledger:     ledger,
		loyalty:    resolver,
		coupons:    registry,
		sessions:   sessions,
		store:      store,
		log:        log,
		historyCap: historyCap,
		now:        time.Now,
	}
}

// ApplyCoupon is the authoritative coupon path: resolve the code
// (general table first, then the user's personal list), validate
// eligibility against the current subtotal, mark user-scoped coupons
// used, and set the coupon on the ledger.
func (s *Service) ApplyCoupon(ctx context.Context, userID, code string) (models.Coupon, error) {
	c, userScoped, err := s.coupons.Lookup(ctx, code, userID)
	if err != nil {
		return models.Coupon{}, err
	}

	if err := s.coupons.Validate(c, s.ledger.Totals().Subtotal, s.now()); err != nil {
		return models.Coupon{}, err
	}

	if userScoped {
		if err := s.coupons.MarkUsed(ctx, userID, c.Code); err != nil {
			s.log.Warn("failed to mark coupon used", "code", c.Code, "user_id", userID, "error", err)
		}
	}

	s.ledger.ApplyCoupon(ctx, c)
	return c, nil
}

// RemoveCoupon clears the applied coupon from the ledger.
func (s *Service) RemoveCoupon(ctx context.Context) {
	s.ledger.RemoveCoupon(ctx)
}

// Checkout records the purchase, credits points, and clears the cart.
//
// Points are always computed from the pre-discount subtotal; that is
// the single authoritative rule. The session's lifetime discount is
// applied to the total after the coupon discount, not compounded into
// it. Cart and points live under separate keys, so a crash between the
// writes can leave one updated without the other; accepted limitation.
func (s *Service) Checkout(ctx context.Context, paymentMethod string) (*Result, error) {
	totals := s.ledger.Totals()
	if totals.Count == 0 {
		return nil, ErrEmptyCart
	}

	pointsEarned := s.loyalty.PointsForPurchase(totals.Subtotal)

	total := totals.Total
	if s.sessions != nil {
		sess, err := s.sessions.Current(ctx)
		if err != nil {
			s.log.Warn("session unreadable at checkout, skipping lifetime discount", "error", err)
		} else if sess != nil && sess.HasLifetimeDiscount && sess.DiscountPercentage > 0 {
			total -= total.PercentOf(int64(sess.DiscountPercentage))
			if total < 0 {
				total = 0
			}
		}
	}

	now := s.now()
	record := models.PurchaseRecord{
		ID:            fmt.Sprintf("ORD-%d", now.UnixMilli()),
		Timestamp:     now.UTC(),
		Items:         s.ledger.Items(),
		Count:         totals.Count,
		Subtotal:      totals.Subtotal,
		Discount:      totals.Discount,
		Total:         total,
		PaymentMethod: paymentMethod,
		PointsEarned:  pointsEarned,
		Status:        models.PurchaseStatusCompleted,
	}

	_, err := kv.Update(ctx, s.store, HistoryKey, func(history []models.PurchaseRecord) []models.PurchaseRecord {
		history = append([]models.PurchaseRecord{record}, history...)
		if len(history) > s.historyCap {
			history = history[:s.historyCap]
		}
		return history
	})
	if err != nil {
		return nil, fmt.Errorf("checkout: record purchase: %w", err)
	}

	balance := s.loyalty.AddPoints(ctx, pointsEarned)
	s.ledger.Clear(ctx)

	s.log.Info("checkout completed",
		"order_id", record.ID,
		"items", record.Count,
		"subtotal", record.Subtotal,
		"total", record.Total,
		"points_earned", pointsEarned,
	)

	return &Result{
		Record:       record,
		PointsEarned: pointsEarned,
		NewBalance:   balance,
		Level:        s.loyalty.LevelForPoints(balance).Name,
	}, nil
}

// History returns the purchase history, newest first. Unreadable
// history degrades to empty.
func (s *Service) History(ctx context.Context) []models.PurchaseRecord {
	history, err := kv.GetJSON[[]models.PurchaseRecord](ctx, s.store, HistoryKey)
	if err != nil {
		if !errors.Is(err, kv.ErrKeyNotFound) {
			s.log.Warn("purchase history unreadable", "error", err)
		}
		return nil
	}
	return history
}
