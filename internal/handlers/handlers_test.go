package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/levelup-gamer/storefront/internal/cart"
	"github.com/levelup-gamer/storefront/internal/catalog"
	"github.com/levelup-gamer/storefront/internal/checkout"
	"github.com/levelup-gamer/storefront/internal/coupon"
	"github.com/levelup-gamer/storefront/internal/kv"
	"github.com/levelup-gamer/storefront/internal/loyalty"
	"github.com/levelup-gamer/storefront/internal/session"
	"github.com/levelup-gamer/storefront/pkg/logger"
)

// testAPI wires real services over an in-memory store behind the same
// routes main registers, minus auth.
type testAPI struct {
	router   *chi.Mux
	ledger   *cart.Ledger
	registry *coupon.Registry
	resolver *loyalty.Resolver
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	ctx := context.Background()
	log := logger.New("error")
	store := kv.NewMemory()

	ledger := cart.New(ctx, kv.NewNamespace(store, "cart"), log)
	resolver := loyalty.NewResolver(ctx, store, loyalty.Config{}, log)
	registry := coupon.NewRegistry(store, log)
	sessions := session.NewManager(kv.NewTTL(store), time.Hour, log)
	service := checkout.NewService(ledger, resolver, registry, sessions, store, 0, log)
	products := catalog.NewInMemoryRepository(catalog.SeedProducts())

	productHandler := NewProductHandler(products, log)
	cartHandler := NewCartHandler(ledger, products, log)
	checkoutHandler := NewCheckoutHandler(service, log)
	loyaltyHandler := NewLoyaltyHandler(resolver, log)
	sessionHandler := NewSessionHandler(sessions, time.Hour, log)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/product", productHandler.ListProducts)
		r.Get("/product/{productCode}", productHandler.GetProduct)
		r.Get("/cart", cartHandler.GetCart)
		r.Post("/cart/items", cartHandler.AddItem)
		r.Put("/cart/items/{productCode}", cartHandler.UpdateQuantity)
		r.Delete("/cart/items/{productCode}", cartHandler.RemoveItem)
		r.Delete("/cart", cartHandler.ClearCart)
		r.Post("/checkout/coupon", checkoutHandler.ApplyCoupon)
		r.Delete("/checkout/coupon", checkoutHandler.RemoveCoupon)
		r.Post("/checkout", checkoutHandler.Checkout)
		r.Get("/history", checkoutHandler.History)
		r.Get("/loyalty", loyaltyHandler.Status)
		r.Post("/session", sessionHandler.Start)
		r.Get("/session", sessionHandler.Current)
		r.Delete("/session", sessionHandler.End)
	})

	return &testAPI{
		router:   r,
		ledger:   ledger,
		registry: registry,
		resolver: resolver,
	}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}
