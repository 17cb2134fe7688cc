package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrKeyNotFound is returned when a key has no value in the store.
	ErrKeyNotFound = errors.New("kv: key not found")
)

// Store is the uniform key-value contract shared by every backend.
// Values are raw JSON documents; a read always returns the stored bytes
// untouched, so a value that fails to decode as the expected shape is
// still recoverable by the caller.
type Store interface {
	Get(ctx context.Context, key string) (json.RawMessage, error)
	Set(ctx context.Context, key string, value json.RawMessage) error
	Remove(ctx context.Context, key string) error
	Has(ctx context.Context, key string) (bool, error)
	Keys(ctx context.Context) ([]string, error)
}

// GetJSON reads and decodes a typed value. A missing key returns
// ErrKeyNotFound; a shape mismatch returns an explicit decode error
// rather than a silent default.
func GetJSON[T any](ctx context.Context, s Store, key string) (T, error) {
	var v T

	raw, err := s.Get(ctx, key)
	if err != nil {
		return v, err
	}

	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("kv: decode %q: %w", key, err)
	}
	return v, nil
}

// MarshalValue encodes v for storage as a raw JSON value.
func MarshalValue[T any](v T) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("kv: encode value: %w", err)
	}
	return raw, nil
}

// SetJSON encodes and writes a typed value.
func SetJSON[T any](ctx context.Context, s Store, key string, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kv: encode %q: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}

// Update reads a typed value, applies fn, and writes the result back.
// A missing or undecodable value feeds fn the zero value, so updaters
// self-heal corrupt state instead of failing.
func Update[T any](ctx context.Context, s Store, key string, fn func(T) T) (T, error) {
	cur, err := GetJSON[T](ctx, s, key)
	if err != nil && !errors.Is(err, ErrKeyNotFound) {
		var zero T
		cur = zero
	}

	next := fn(cur)
	if err := SetJSON(ctx, s, key, next); err != nil {
		return next, err
	}
	return next, nil
}
