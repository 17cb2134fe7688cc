// Package session manages the authenticated-user session record.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/levelup-gamer/storefront/internal/kv"
	"github.com/levelup-gamer/storefront/internal/models"
)

// StorageKey is the TTL-store key holding the session record.
const StorageKey = "userSession"

// Manager owns the session record in a TTL store, so an expired session
// reads as absent the same way an expired cookie would.
type Manager struct {
	store *kv.TTLStore
	log   *slog.Logger
	ttl   time.Duration
}

// NewManager creates a session manager with the given session lifetime.
func NewManager(store *kv.TTLStore, ttl time.Duration, log *slog.Logger) *Manager {
	return &Manager{
		store: store,
		log:   log,
		ttl:   ttl,
	}
}

// Start mints a new session with a fresh token and persists it with the
// manager's TTL.
func (m *Manager) Start(ctx context.Context, userID string, lifetimeDiscount bool, discountPct int) (models.Session, error) {
	sess := models.Session{
		Token:               uuid.NewString(),
		UserID:              userID,
		IsAuthenticated:     true,
		LoginTime:           time.Now().UTC(),
		HasLifetimeDiscount: lifetimeDiscount,
		DiscountPercentage:  discountPct,
	}

	raw, err := kv.MarshalValue(sess)
	if err != nil {
		return models.Session{}, err
	}
	if err := m.store.SetWith(ctx, StorageKey, raw, kv.WithTTL(m.ttl)); err != nil {
		return models.Session{}, fmt.Errorf("session: persist: %w", err)
	}
	return sess, nil
}

// Current returns the active session, or nil when none exists or the
// record has expired.
func (m *Manager) Current(ctx context.Context) (*models.Session, error) {
	sess, err := kv.GetJSON[models.Session](ctx, m.store, StorageKey)
	if err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sess, nil
}

// End removes the session record.
func (m *Manager) End(ctx context.Context) error {
	return m.store.Remove(ctx, StorageKey)
}
