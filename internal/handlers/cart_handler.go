package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/levelup-gamer/storefront/internal/cart"
	"github.com/levelup-gamer/storefront/internal/catalog"
	"github.com/levelup-gamer/storefront/internal/models"
)

// CartHandler handles cart mutation and read requests.
type CartHandler struct {
	ledger *cart.Ledger
	repo   catalog.ProductRepository
	logger *slog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(ledger *cart.Ledger, repo catalog.ProductRepository, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		ledger: ledger,
		repo:   repo,
		logger: logger,
	}
}

type addItemRequest struct {
	ProductCode string `json:"productCode"`
	Qty         int    `json:"qty"`
}

type updateQuantityRequest struct {
	Qty int `json:"qty"`
}

type cartResponse struct {
	Items         []models.CartLineItem `json:"items"`
	AppliedCoupon *models.Coupon        `json:"appliedCoupon,omitempty"`
	Totals        models.Totals         `json:"totals"`
}

func (h *CartHandler) cartView() cartResponse {
	return cartResponse{
		Items:         h.ledger.Items(),
		AppliedCoupon: h.ledger.AppliedCoupon(),
		Totals:        h.ledger.Totals(),
	}
}

// GetCart handles GET /api/cart.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cartView(), h.logger)
}

// AddItem handles POST /api/cart/items. The product is resolved from
// the catalog so the line carries the current price and stock ceiling.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", h.logger)
		return
	}

	product, err := h.repo.GetByCode(r.Context(), req.ProductCode)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "Product not found", h.logger)
			return
		}
		h.logger.Error("failed to resolve product", "code", req.ProductCode, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", h.logger)
		return
	}

	qty := req.Qty
	if qty == 0 {
		qty = 1
	}

	if err := h.ledger.Add(r.Context(), product.LineItem(qty)); err != nil {
		switch {
		case errors.Is(err, cart.ErrMissingID):
			writeError(w, http.StatusBadRequest, "Item must have an id", h.logger)
		case errors.Is(err, cart.ErrExceedsStock):
			writeError(w, http.StatusConflict, "Requested quantity exceeds available stock", h.logger)
		default:
			h.logger.Error("failed to add item", "code", req.ProductCode, "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error", h.logger)
		}
		return
	}

	writeJSON(w, http.StatusOK, h.cartView(), h.logger)
}

// UpdateQuantity handles PUT /api/cart/items/{productCode}. A quantity
// of zero removes the line.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "productCode")

	var req updateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", h.logger)
		return
	}

	if err := h.ledger.UpdateQuantity(r.Context(), code, req.Qty); err != nil {
		if errors.Is(err, cart.ErrExceedsStock) {
			writeError(w, http.StatusConflict, "Requested quantity exceeds available stock", h.logger)
			return
		}
		h.logger.Error("failed to update quantity", "code", code, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, h.cartView(), h.logger)
}

// RemoveItem handles DELETE /api/cart/items/{productCode}.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "productCode")
	h.ledger.Remove(r.Context(), code)
	writeJSON(w, http.StatusOK, h.cartView(), h.logger)
}

// ClearCart handles DELETE /api/cart.
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.ledger.Clear(r.Context())
	writeJSON(w, http.StatusOK, h.cartView(), h.logger)
}
