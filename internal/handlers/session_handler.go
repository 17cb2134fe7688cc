package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/levelup-gamer/storefront/internal/session"
)

// SessionHandler manages the user session record and its cookie.
type SessionHandler struct {
	manager *session.Manager
	ttl     time.Duration
	logger  *slog.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(manager *session.Manager, ttl time.Duration, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		manager: manager,
		ttl:     ttl,
		logger:  logger,
	}
}

type startSessionRequest struct {
	UserID              string `json:"userId"`
	HasLifetimeDiscount bool   `json:"hasLifetimeDiscount"`
	DiscountPercentage  int    `json:"discountPercentage"`
}

// Start handles POST /api/session: persists the session record and sets
// the session cookie.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", h.logger)
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required", h.logger)
		return
	}

	sess, err := h.manager.Start(r.Context(), req.UserID, req.HasLifetimeDiscount, req.DiscountPercentage)
	if err != nil {
		h.logger.Error("failed to start session", "user_id", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", h.logger)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.StorageKey,
		Value:    sess.Token,
		Path:     "/",
		Expires:  time.Now().Add(h.ttl),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, sess, h.logger)
}

// Current handles GET /api/session.
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	sess, err := h.manager.Current(r.Context())
	if err != nil {
		h.logger.Error("failed to read session", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", h.logger)
		return
	}
	if sess == nil {
		writeError(w, http.StatusNotFound, "No active session", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, sess, h.logger)
}

// End handles DELETE /api/session: removes the record and expires the
// cookie by re-setting it with a deadline in the past.
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.End(r.Context()); err != nil {
		h.logger.Error("failed to end session", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error", h.logger)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.StorageKey,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusNoContent)
}
