// Package cart owns the cart ledger: the line items and optional
// coupon of the active cart, its computed totals, and its persistence.
package cart

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/levelup-gamer/storefront/internal/kv"
	"github.com/levelup-gamer/storefront/internal/models"
)

var (
	ErrMissingID    = errors.New("cart: item must have an id")
	ErrExceedsStock = errors.New("cart: requested quantity exceeds stock")
)

// StorageKey is the key the ledger persists under. Wired behind a
// "cart" namespace the effective key is cart:data.
const StorageKey = "data"

// Subscriber receives the cart totals after every mutation.
type Subscriber func(models.Totals)

// Ledger is the cart service. Every mutating operation persists the
// full cart to the store and notifies subscribers; validation failures
// leave the ledger unchanged.
type Ledger struct {
	mu      sync.Mutex
	store   kv.Store
	log     *slog.Logger
	cart    models.Cart
	subs    map[int]Subscriber
	nextSub int
}

// New creates a ledger bound to the given store, loading any persisted
// cart. A malformed persisted cart is treated as empty.
func New(ctx context.Context, store kv.Store, log *slog.Logger) *Ledger {
	l := &Ledger{
		store: store,
		log:   log,
		subs:  make(map[int]Subscriber),
	}

	cart, err := kv.GetJSON[models.Cart](ctx, store, StorageKey)
	switch {
	case err == nil:
		l.cart = cart
	case errors.Is(err, kv.ErrKeyNotFound):
		// first access, start empty
	default:
		log.Warn("persisted cart is unreadable, starting empty", "error", err)
	}
	return l
}

// Subscribe registers fn for change notifications and returns a cancel
// function.
func (l *Ledger) Subscribe(fn Subscriber) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.subs, id)
	}
}

// Add merges an item into the cart. An item with an existing id has its
// quantity summed onto the existing line; a new id appends a line with
// qty defaulting to 1. Exceeding a known stock ceiling rejects the add
// outright.
func (l *Ledger) Add(ctx context.Context, item models.CartLineItem) error {
	if item.ID == "" {
		return ErrMissingID
	}

	qty := item.Qty
	if qty <= 0 {
		qty = 1
	}

	l.mu.Lock()
	for i, line := range l.cart.Items {
		if line.ID != item.ID {
			continue
		}
		newQty := line.Qty + qty
		if line.Stock != nil && newQty > *line.Stock {
			l.mu.Unlock()
			return ErrExceedsStock
		}
		l.cart.Items[i].Qty = newQty
		l.persistAndNotifyLocked(ctx)
		return nil
	}

	if item.Stock != nil && qty > *item.Stock {
		l.mu.Unlock()
		return ErrExceedsStock
	}

	item.Qty = qty
	l.cart.Items = append(l.cart.Items, item)
	l.persistAndNotifyLocked(ctx)
	return nil
}

// UpdateQuantity replaces a line's quantity. A quantity of zero or less
// removes the line; a quantity above a known stock ceiling is rejected
// with the ledger unchanged. Unknown ids are a no-op.
func (l *Ledger) UpdateQuantity(ctx context.Context, id string, qty int) error {
	l.mu.Lock()
	for i, line := range l.cart.Items {
		if line.ID != id {
			continue
		}
		if qty <= 0 {
			l.cart.Items = append(l.cart.Items[:i], l.cart.Items[i+1:]...)
			l.persistAndNotifyLocked(ctx)
			return nil
		}
		if line.Stock != nil && qty > *line.Stock {
			l.mu.Unlock()
			return ErrExceedsStock
		}
		l.cart.Items[i].Qty = qty
		l.persistAndNotifyLocked(ctx)
		return nil
	}
	l.mu.Unlock()
	return nil
}

// Remove deletes a line if present; unknown ids are a no-op.
func (l *Ledger) Remove(ctx context.Context, id string) {
	l.mu.Lock()
	for i, line := range l.cart.Items {
		if line.ID == id {
			l.cart.Items = append(l.cart.Items[:i], l.cart.Items[i+1:]...)
			l.persistAndNotifyLocked(ctx)
			return
		}
	}
	l.mu.Unlock()
}

// Clear resets the cart to empty, dropping any applied coupon.
func (l *Ledger) Clear(ctx context.Context) {
	l.mu.Lock()
	l.cart = models.Cart{}
	l.persistAndNotifyLocked(ctx)
}

// ApplyCoupon sets the applied coupon. Eligibility is the caller's
// responsibility; checkout owns the authoritative validation sequence.
func (l *Ledger) ApplyCoupon(ctx context.Context, c models.Coupon) {
	l.mu.Lock()
	l.cart.AppliedCoupon = &c
	l.persistAndNotifyLocked(ctx)
}

// RemoveCoupon unsets the applied coupon.
func (l *Ledger) RemoveCoupon(ctx context.Context) {
	l.mu.Lock()
	l.cart.AppliedCoupon = nil
	l.persistAndNotifyLocked(ctx)
}

// Items returns a copy of the current line items in insertion order.
func (l *Ledger) Items() []models.CartLineItem {
	l.mu.Lock()
	defer l.mu.Unlock()

	items := make([]models.CartLineItem, len(l.cart.Items))
	copy(items, l.cart.Items)
	return items
}

// AppliedCoupon returns the applied coupon, or nil.
func (l *Ledger) AppliedCoupon() *models.Coupon {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cart.AppliedCoupon == nil {
		return nil
	}
	c := *l.cart.AppliedCoupon
	return &c
}

// Totals computes count, subtotal, discount, and total for the current
// cart. The reported discount is not clamped to the subtotal; the total
// never goes below zero.
func (l *Ledger) Totals() models.Totals {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalsLocked()
}

func (l *Ledger) totalsLocked() models.Totals {
	var t models.Totals
	for _, line := range l.cart.Items {
		t.Count += line.Qty
		t.Subtotal += line.Price * models.Money(line.Qty)
	}

	if l.cart.AppliedCoupon != nil {
		t.Discount = l.cart.AppliedCoupon.Discount(t.Subtotal)
	}

	t.Total = t.Subtotal - t.Discount
	if t.Total < 0 {
		t.Total = 0
	}
	return t
}

// Reload replaces in-memory state with whatever is persisted,
// last-writer-wins. Wired to the file store's watch hook so external
// writers are reconciled.
func (l *Ledger) Reload(ctx context.Context) {
	cart, err := kv.GetJSON[models.Cart](ctx, l.store, StorageKey)
	if err != nil {
		if !errors.Is(err, kv.ErrKeyNotFound) {
			l.log.Warn("reload skipped, persisted cart unreadable", "error", err)
			return
		}
		cart = models.Cart{}
	}

	l.mu.Lock()
	l.cart = cart
	totals := l.totalsLocked()
	subs := l.subscribersLocked()
	l.mu.Unlock()

	for _, fn := range subs {
		fn(totals)
	}
}

// persistAndNotifyLocked writes the cart and fans out notifications.
// It is called with mu held and releases it. Persistence is
// best-effort: a write failure is logged, never surfaced as a mutation
// failure.
func (l *Ledger) persistAndNotifyLocked(ctx context.Context) {
	if err := kv.SetJSON(ctx, l.store, StorageKey, l.cart); err != nil {
		l.log.Warn("failed to persist cart", "error", err)
	}

	totals := l.totalsLocked()
	subs := l.subscribersLocked()
	l.mu.Unlock()

	for _, fn := range subs {
		fn(totals)
	}
}

func (l *Ledger) subscribersLocked() []Subscriber {
	subs := make([]Subscriber, 0, len(l.subs))
	for _, fn := range l.subs {
		subs = append(subs, fn)
	}
	return subs
}
