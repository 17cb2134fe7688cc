package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/levelup-gamer/storefront/internal/checkout"
	"github.com/levelup-gamer/storefront/internal/coupon"
	"github.com/levelup-gamer/storefront/internal/models"
)

// CheckoutHandler handles coupon application and checkout requests.
type CheckoutHandler struct {
	service *checkout.Service
	logger  *slog.Logger
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(service *checkout.Service, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		logger:  logger,
	}
}

type applyCouponRequest struct {
	Code   string `json:"code"`
	UserID string `json:"userId"`
}

type checkoutRequest struct {
	PaymentMethod string `json:"paymentMethod"`
}

// ApplyCoupon handles POST /api/checkout/coupon, the authoritative
// coupon validation path.
func (h *CheckoutHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", h.logger)
		return
	}

	applied, err := h.service.ApplyCoupon(r.Context(), req.UserID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, coupon.ErrInvalid):
			writeError(w, http.StatusBadRequest, "Coupon invalid or already used", h.logger)
		case errors.Is(err, coupon.ErrExpired):
			writeError(w, http.StatusBadRequest, "Coupon expired", h.logger)
		case errors.Is(err, coupon.ErrMinPurchaseNotMet):
			writeError(w, http.StatusBadRequest, "Minimum purchase not met", h.logger)
		default:
			h.logger.Error("failed to apply coupon", "code", req.Code, "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error", h.logger)
		}
		return
	}

	writeJSON(w, http.StatusOK, applied, h.logger)
}

// RemoveCoupon handles DELETE /api/checkout/coupon.
func (h *CheckoutHandler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	h.service.RemoveCoupon(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Checkout handles POST /api/checkout.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", h.logger)
		return
	}

	result, err := h.service.Checkout(r.Context(), req.PaymentMethod)
	if err != nil {
		if errors.Is(err, checkout.ErrEmptyCart) {
			writeError(w, http.StatusBadRequest, "Cart is empty", h.logger)
			return
		}
		h.logger.Error("checkout failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, result, h.logger)
}

// History handles GET /api/history, newest purchases first.
func (h *CheckoutHandler) History(w http.ResponseWriter, r *http.Request) {
	history := h.service.History(r.Context())
	if history == nil {
		history = []models.PurchaseRecord{}
	}
	writeJSON(w, http.StatusOK, history, h.logger)
}
