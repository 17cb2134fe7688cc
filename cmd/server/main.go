package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/levelup-gamer/storefront/internal/cart"
	"github.com/levelup-gamer/storefront/internal/catalog"
	"github.com/levelup-gamer/storefront/internal/checkout"
	"github.com/levelup-gamer/storefront/internal/config"
	"github.com/levelup-gamer/storefront/internal/coupon"
	"github.com/levelup-gamer/storefront/internal/handlers"
	"github.com/levelup-gamer/storefront/internal/kv"
	"github.com/levelup-gamer/storefront/internal/loyalty"
	"github.com/levelup-gamer/storefront/internal/middleware"
	"github.com/levelup-gamer/storefront/internal/models"
	"github.com/levelup-gamer/storefront/internal/session"
	"github.com/levelup-gamer/storefront/pkg/logger"
)

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	log.Info("starting levelup gamer storefront api",
		"port", cfg.Server.Port,
		"host", cfg.Server.Host,
		"storage_backend", cfg.Storage.Backend,
		"log_level", cfg.LogLevel,
	)

	ctx := context.Background()

	// Open the durable key-value backend
	base, fileStore, closeStore, err := openStore(ctx, cfg.Storage, log)
	if err != nil {
		log.Error("failed to open storage backend", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// Core services. The cart gets its own namespace so its state
	// lives under cart:data.
	ledger := cart.New(ctx, kv.NewNamespace(base, "cart"), log)

	loyaltyCfg := loyalty.LoadConfig(cfg.Data.LevelsFile, cfg.Data.PointsRulesFile, cfg.Loyalty.BaseMultiplier, log)
	resolver := loyalty.NewResolver(ctx, base, loyaltyCfg, log)

	registry := coupon.NewRegistry(base, log)
	if err := registry.LoadGeneralFile(cfg.Data.CouponsFile); err != nil {
		log.Warn("coupon table unavailable, only user coupons will resolve", "path", cfg.Data.CouponsFile, "error", err)
	}

	sessionTTL := time.Duration(cfg.Session.TTLHours) * time.Hour
	sessions := session.NewManager(kv.NewTTL(base), sessionTTL, log)

	checkoutSvc := checkout.NewService(ledger, resolver, registry, sessions, base, cfg.Loyalty.HistoryCap, log)

	products := catalog.NewFromFile(cfg.Data.ProductsFile, log)

	// Cart change notifications: log locally, and reconcile external
	// writers via the file watch when that backend is active.
	ledger.Subscribe(func(t models.Totals) {
		log.Debug("cart changed", "count", t.Count, "subtotal", t.Subtotal, "total", t.Total)
	})
	if fileStore != nil {
		if err := fileStore.Watch(func() { ledger.Reload(context.Background()) }); err != nil {
			log.Warn("cart file watch unavailable", "error", err)
		}
	}

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(log)
	productHandler := handlers.NewProductHandler(products, log)
	cartHandler := handlers.NewCartHandler(ledger, products, log)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutSvc, log)
	loyaltyHandler := handlers.NewLoyaltyHandler(resolver, log)
	sessionHandler := handlers.NewSessionHandler(sessions, sessionTTL, log)

	// Create router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.APIKeyHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Register health check endpoint
	r.Get("/health", healthHandler.ServeHTTP)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Read endpoints
		r.Get("/product", productHandler.ListProducts)
		r.Get("/product/{productCode}", productHandler.GetProduct)
		r.Get("/cart", cartHandler.GetCart)
		r.Get("/loyalty", loyaltyHandler.Status)
		r.Get("/history", checkoutHandler.History)
		r.Get("/session", sessionHandler.Current)

		// Mutating endpoints require an API key
		r.Group(func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(cfg.Auth))

			r.Post("/cart/items", cartHandler.AddItem)
			r.Put("/cart/items/{productCode}", cartHandler.UpdateQuantity)
			r.Delete("/cart/items/{productCode}", cartHandler.RemoveItem)
			r.Delete("/cart", cartHandler.ClearCart)

			r.Post("/checkout/coupon", checkoutHandler.ApplyCoupon)
			r.Delete("/checkout/coupon", checkoutHandler.RemoveCoupon)
			r.Post("/checkout", checkoutHandler.Checkout)

			r.Post("/session", sessionHandler.Start)
			r.Delete("/session", sessionHandler.End)
		})
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped gracefully")
}

// openStore opens the configured backend. The file store is returned
// separately so the caller can wire its change watch.
func openStore(ctx context.Context, cfg config.StorageConfig, log *slog.Logger) (kv.Store, *kv.FileStore, func(), error) {
	noop := func() {}

	switch cfg.Backend {
	case "memory":
		return kv.NewMemory(), nil, noop, nil

	case "file":
		fs, err := kv.NewFile(filepath.Join(cfg.DataDir, "store.json"), log)
		if err != nil {
			return nil, nil, noop, err
		}
		return fs, fs, func() { _ = fs.Close() }, nil

	case "sqlite":
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, nil, noop, err
		}
		ss, err := kv.OpenSQLite(filepath.Join(cfg.DataDir, "store.db"))
		if err != nil {
			return nil, nil, noop, err
		}
		return ss, nil, func() { _ = ss.Close() }, nil

	case "postgres":
		ps, err := kv.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, noop, err
		}
		return ps, nil, func() { _ = ps.Close() }, nil

	case "mongo":
		ms, err := kv.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, noop, err
		}
		return ms, nil, func() { _ = ms.Close(context.Background()) }, nil

	default:
		return nil, nil, noop, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
