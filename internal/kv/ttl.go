package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// envelope wraps a stored value with an optional expiry deadline.
type envelope struct {
	ExpiresAt *time.Time      `json:"expiresAt,omitempty"`
	Value     json.RawMessage `json:"value"`
}

// SetOption configures expiry for TTLStore.SetWith.
type SetOption func(*envelope)

// WithTTL expires the key after a relative duration.
func WithTTL(d time.Duration) SetOption {
	return func(e *envelope) {
		t := time.Now().Add(d)
		e.ExpiresAt = &t
	}
}

// WithTTLDays expires the key after a whole number of days.
func WithTTLDays(days int) SetOption {
	return WithTTL(time.Duration(days) * 24 * time.Hour)
}

// WithExpiresAt expires the key at an absolute deadline.
func WithExpiresAt(t time.Time) SetOption {
	return func(e *envelope) {
		e.ExpiresAt = &t
	}
}

// TTLStore adds per-key expiry on top of any Store, mirroring cookie
// semantics: an expired key reads as absent and is lazily purged, and
// removal is equivalent to re-setting with a deadline in the past.
type TTLStore struct {
	inner Store
	now   func() time.Time
}

// NewTTL wraps a store with expiry handling.
func NewTTL(inner Store) *TTLStore {
	return &TTLStore{
		inner: inner,
		now:   time.Now,
	}
}

// SetWith writes a value with optional expiry.
func (s *TTLStore) SetWith(ctx context.Context, key string, value json.RawMessage, opts ...SetOption) error {
	e := envelope{Value: value}
	for _, opt := range opts {
		opt(&e)
	}

	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("kv: encode ttl envelope: %w", err)
	}
	return s.inner.Set(ctx, key, raw)
}

func (s *TTLStore) Get(ctx context.Context, key string) (json.RawMessage, error) {
	raw, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var e envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		// Not an envelope; treat the raw value as unexpiring.
		return raw, nil
	}

	if e.ExpiresAt != nil && s.now().After(*e.ExpiresAt) {
		_ = s.inner.Remove(ctx, key)
		return nil, ErrKeyNotFound
	}
	return e.Value, nil
}

func (s *TTLStore) Set(ctx context.Context, key string, value json.RawMessage) error {
	return s.SetWith(ctx, key, value)
}

func (s *TTLStore) Remove(ctx context.Context, key string) error {
	return s.inner.Remove(ctx, key)
}

func (s *TTLStore) Has(ctx context.Context, key string) (bool, error) {
	_, err := s.Get(ctx, key)
	if err == ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *TTLStore) Keys(ctx context.Context) ([]string, error) {
	return s.inner.Keys(ctx)
}
