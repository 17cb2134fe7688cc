package cart

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/levelup-gamer/storefront/internal/kv"
	"github.com/levelup-gamer/storefront/internal/models"
	"github.com/levelup-gamer/storefront/pkg/logger"
)

func stock(n int) *int { return &n }

func newTestLedger(t *testing.T) (*Ledger, kv.Store) {
	t.Helper()
	store := kv.NewMemory()
	return New(context.Background(), store, logger.New("error")), store
}

func TestLedger_AddMergesByID(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	if err := ledger.Add(ctx, models.CartLineItem{ID: "X", Price: 100, Qty: 2}); err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	if err := ledger.Add(ctx, models.CartLineItem{ID: "X", Price: 100, Qty: 3}); err != nil {
		t.Fatalf("second add failed: %v", err)
	}

	items := ledger.Items()
	if len(items) != 1 {
		t.Fatalf("expected exactly one line item, got %d", len(items))
	}
	if items[0].Qty != 5 {
		t.Errorf("expected merged qty 5, got %d", items[0].Qty)
	}
}

func TestLedger_AddDefaultsQtyToOne(t *testing.T) {
	ledger, _ := newTestLedger(t)

	if err := ledger.Add(context.Background(), models.CartLineItem{ID: "X", Price: 100}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	if got := ledger.Items()[0].Qty; got != 1 {
		t.Errorf("expected default qty 1, got %d", got)
	}
}

func TestLedger_AddRequiresID(t *testing.T) {
	ledger, _ := newTestLedger(t)

	err := ledger.Add(context.Background(), models.CartLineItem{Price: 100, Qty: 1})
	if !errors.Is(err, ErrMissingID) {
		t.Errorf("expected ErrMissingID, got %v", err)
	}
	if len(ledger.Items()) != 0 {
		t.Error("ledger must be unchanged after a rejected add")
	}
}

func TestLedger_StockCeiling(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	if err := ledger.Add(ctx, models.CartLineItem{ID: "X", Price: 100, Qty: 3, Stock: stock(5)}); err != nil {
		t.Fatalf("first add failed: %v", err)
	}

	// Second add of 3 would exceed stock 5: rejected outright, never clamped
	err := ledger.Add(ctx, models.CartLineItem{ID: "X", Price: 100, Qty: 3, Stock: stock(5)})
	if !errors.Is(err, ErrExceedsStock) {
		t.Fatalf("expected ErrExceedsStock, got %v", err)
	}

	if got := ledger.Items()[0].Qty; got != 3 {
		t.Errorf("expected qty unchanged at 3, got %d", got)
	}
}

func TestLedger_AddRejectsInitialQtyAboveStock(t *testing.T) {
	ledger, _ := newTestLedger(t)

	err := ledger.Add(context.Background(), models.CartLineItem{ID: "X", Price: 100, Qty: 6, Stock: stock(5)})
	if !errors.Is(err, ErrExceedsStock) {
		t.Errorf("expected ErrExceedsStock, got %v", err)
	}
	if len(ledger.Items()) != 0 {
		t.Error("ledger must be unchanged after a rejected add")
	}
}

func TestLedger_UpdateQuantity(t *testing.T) {
	tests := []struct {
		name      string
		qty       int
		wantErr   error
		wantItems int
		wantQty   int
	}{
		{name: "replace quantity", qty: 4, wantItems: 1, wantQty: 4},
		{name: "zero removes the line", qty: 0, wantItems: 0},
		{name: "negative removes the line", qty: -2, wantItems: 0},
		{name: "above stock is rejected", qty: 9, wantErr: ErrExceedsStock, wantItems: 1, wantQty: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger, _ := newTestLedger(t)
			ctx := context.Background()

			if err := ledger.Add(ctx, models.CartLineItem{ID: "A", Price: 500, Qty: 2, Stock: stock(5)}); err != nil {
				t.Fatalf("add failed: %v", err)
			}

			err := ledger.UpdateQuantity(ctx, "A", tt.qty)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}

			items := ledger.Items()
			if len(items) != tt.wantItems {
				t.Fatalf("expected %d items, got %d", tt.wantItems, len(items))
			}
			if tt.wantItems > 0 && items[0].Qty != tt.wantQty {
				t.Errorf("expected qty %d, got %d", tt.wantQty, items[0].Qty)
			}
		})
	}
}

func TestLedger_UpdateQuantityUnknownIDIsNoop(t *testing.T) {
	ledger, _ := newTestLedger(t)

	if err := ledger.UpdateQuantity(context.Background(), "ghost", 3); err != nil {
		t.Errorf("expected no error for unknown id, got %v", err)
	}
}

func TestLedger_RemoveUnknownIDIsNoop(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	if err := ledger.Add(ctx, models.CartLineItem{ID: "A", Price: 100, Qty: 1}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	ledger.Remove(ctx, "ghost")

	if len(ledger.Items()) != 1 {
		t.Error("removing an unknown id must not alter the cart")
	}
}

func TestLedger_TotalsIdempotent(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	if err := ledger.Add(ctx, models.CartLineItem{ID: "A", Price: 25000, Qty: 2}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	first := ledger.Totals()
	second := ledger.Totals()
	if first != second {
		t.Errorf("totals must be idempotent: %+v vs %+v", first, second)
	}
	if first.Count != 2 || first.Subtotal != 50000 || first.Discount != 0 || first.Total != 50000 {
		t.Errorf("unexpected totals: %+v", first)
	}
}

func TestLedger_PercentageCouponDiscount(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	if err := ledger.Add(ctx, models.CartLineItem{ID: "A", Price: 10000, Qty: 1}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	ledger.ApplyCoupon(ctx, models.Coupon{
		Code:      "TEN",
		Type:      models.CouponTypePercentage,
		Value:     10,
		ExpiresAt: time.Now().Add(time.Hour),
	})

	totals := ledger.Totals()
	if totals.Discount != 1000 {
		t.Errorf("expected discount 1000, got %d", totals.Discount)
	}
	if totals.Total != 9000 {
		t.Errorf("expected total 9000, got %d", totals.Total)
	}
}

func TestLedger_FixedCouponExceedsSubtotal(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	if err := ledger.Add(ctx, models.CartLineItem{ID: "A", Price: 3000, Qty: 1}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	ledger.ApplyCoupon(ctx, models.Coupon{
		Code:      "BIG",
		Type:      models.CouponTypeFixed,
		Value:     5000,
		ExpiresAt: time.Now().Add(time.Hour),
	})

	totals := ledger.Totals()
	// The reported discount is not clamped; only the total is
	if totals.Discount != 5000 {
		t.Errorf("expected unclamped discount 5000, got %d", totals.Discount)
	}
	if totals.Total != 0 {
		t.Errorf("expected total clamped to 0, got %d", totals.Total)
	}
}

func TestLedger_ClearDropsCoupon(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	if err := ledger.Add(ctx, models.CartLineItem{ID: "A", Price: 100, Qty: 1}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	ledger.ApplyCoupon(ctx, models.Coupon{Code: "C", Type: models.CouponTypeFixed, Value: 10})
	ledger.Clear(ctx)

	if len(ledger.Items()) != 0 {
		t.Error("expected empty cart after clear")
	}
	if ledger.AppliedCoupon() != nil {
		t.Error("expected coupon to be dropped by clear")
	}
}

func TestLedger_PersistsAndReloads(t *testing.T) {
	store := kv.NewMemory()
	ctx := context.Background()
	log := logger.New("error")

	ledger := New(ctx, store, log)
	if err := ledger.Add(ctx, models.CartLineItem{ID: "A", Price: 100, Qty: 2}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	// A fresh ledger over the same store sees the persisted cart
	reloaded := New(ctx, store, log)
	items := reloaded.Items()
	if len(items) != 1 || items[0].Qty != 2 {
		t.Errorf("expected persisted cart to load, got %+v", items)
	}
}

func TestLedger_MalformedPersistedCartLoadsEmpty(t *testing.T) {
	store := kv.NewMemory()
	ctx := context.Background()

	if err := store.Set(ctx, StorageKey, json.RawMessage(`{broken`)); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	ledger := New(ctx, store, logger.New("error"))
	if len(ledger.Items()) != 0 {
		t.Error("malformed persisted cart must load as empty")
	}
	if got := ledger.Totals().Count; got != 0 {
		t.Errorf("expected count 0, got %d", got)
	}
}

func TestLedger_NotifiesSubscribers(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	var notified []models.Totals
	cancel := ledger.Subscribe(func(t models.Totals) {
		notified = append(notified, t)
	})

	if err := ledger.Add(ctx, models.CartLineItem{ID: "A", Price: 100, Qty: 1}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if len(notified) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notified))
	}
	if notified[0].Count != 1 || notified[0].Subtotal != 100 {
		t.Errorf("unexpected notified totals: %+v", notified[0])
	}

	cancel()
	ledger.Clear(ctx)
	if len(notified) != 1 {
		t.Error("expected no notifications after cancel")
	}
}

func TestLedger_ReloadReplacesState(t *testing.T) {
	store := kv.NewMemory()
	ctx := context.Background()
	log := logger.New("error")

	ledger := New(ctx, store, log)
	if err := ledger.Add(ctx, models.CartLineItem{ID: "A", Price: 100, Qty: 1}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	// An external writer replaces the persisted cart
	external := models.Cart{Items: []models.CartLineItem{{ID: "B", Price: 200, Qty: 3}}}
	if err := kv.SetJSON(ctx, store, StorageKey, external); err != nil {
		t.Fatalf("external write failed: %v", err)
	}

	ledger.Reload(ctx)

	items := ledger.Items()
	if len(items) != 1 || items[0].ID != "B" || items[0].Qty != 3 {
		t.Errorf("expected last-writer-wins reload, got %+v", items)
	}
}
