package handlers

import (
	"log/slog"
	"net/http"

	"github.com/levelup-gamer/storefront/internal/loyalty"
	"github.com/levelup-gamer/storefront/internal/models"
)

// LoyaltyHandler handles loyalty status requests.
type LoyaltyHandler struct {
	resolver *loyalty.Resolver
	logger   *slog.Logger
}

// NewLoyaltyHandler creates a new loyalty handler.
func NewLoyaltyHandler(resolver *loyalty.Resolver, logger *slog.Logger) *LoyaltyHandler {
	return &LoyaltyHandler{
		resolver: resolver,
		logger:   logger,
	}
}

type loyaltyResponse struct {
	Points   models.Points    `json:"points"`
	Level    string           `json:"level"`
	Progress loyalty.Progress `json:"progress"`
}

// Status handles GET /api/loyalty: current balance, tier, and progress
// toward the next tier.
func (h *LoyaltyHandler) Status(w http.ResponseWriter, r *http.Request) {
	points := h.resolver.Balance()

	writeJSON(w, http.StatusOK, loyaltyResponse{
		Points:   points,
		Level:    h.resolver.LevelForPoints(points).Name,
		Progress: h.resolver.ProgressToNextLevel(points),
	}, h.logger)
}
