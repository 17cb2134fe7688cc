package kv

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"
)

func TestMemoryStore_BasicOperations(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}

	if err := store.Set(ctx, "a", json.RawMessage(`{"x":1}`)); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	raw, err := store.Get(ctx, "a")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(raw) != `{"x":1}` {
		t.Errorf("expected raw value back, got %s", raw)
	}

	has, err := store.Has(ctx, "a")
	if err != nil || !has {
		t.Errorf("expected has=true, got %v, %v", has, err)
	}

	if err := store.Remove(ctx, "a"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	has, _ = store.Has(ctx, "a")
	if has {
		t.Error("expected key to be removed")
	}
}

func TestMemoryStore_Keys(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	for _, k := range []string{"b", "a", "c"} {
		if err := store.Set(ctx, k, json.RawMessage(`1`)); err != nil {
			t.Fatalf("set %s failed: %v", k, err)
		}
	}

	keys, err := store.Keys(ctx)
	if err != nil {
		t.Fatalf("keys failed: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 3 || keys[0] != "a" || keys[2] != "c" {
		t.Errorf("unexpected keys: %v", keys)
	}
}

func TestGetJSON_TypedAccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	type point struct {
		X int `json:"x"`
		Y int `json:"y"`
	}

	if err := SetJSON(ctx, store, "p", point{X: 1, Y: 2}); err != nil {
		t.Fatalf("setjson failed: %v", err)
	}

	got, err := GetJSON[point](ctx, store, "p")
	if err != nil {
		t.Fatalf("getjson failed: %v", err)
	}
	if got.X != 1 || got.Y != 2 {
		t.Errorf("unexpected value: %+v", got)
	}
}

func TestGetJSON_ShapeMismatchIsExplicit(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	if err := store.Set(ctx, "p", json.RawMessage(`"not an object"`)); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	type point struct {
		X int `json:"x"`
	}
	if _, err := GetJSON[point](ctx, store, "p"); err == nil {
		t.Error("expected a decode error for mismatched shape")
	}

	// The raw bytes remain readable untouched
	raw, err := store.Get(ctx, "p")
	if err != nil || string(raw) != `"not an object"` {
		t.Errorf("raw value should survive a failed typed read, got %s, %v", raw, err)
	}
}

func TestUpdate_SelfHealsCorruptValue(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	if err := store.Set(ctx, "counter", json.RawMessage(`{broken`)); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, err := Update(ctx, store, "counter", func(n int) int { return n + 5 })
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if got != 5 {
		t.Errorf("expected updater to start from zero value, got %d", got)
	}
}

func TestUpdate_MissingKeyStartsFromZero(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	got, err := Update(ctx, store, "list", func(xs []string) []string {
		return append(xs, "first")
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if len(got) != 1 || got[0] != "first" {
		t.Errorf("unexpected result: %v", got)
	}
}

func TestNamespaceStore_Isolation(t *testing.T) {
	ctx := context.Background()
	base := NewMemory()

	cartNS := NewNamespace(base, "cart")
	appNS := NewNamespace(base, "app")

	if err := cartNS.Set(ctx, "data", json.RawMessage(`1`)); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := appNS.Set(ctx, "data", json.RawMessage(`2`)); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, err := cartNS.Get(ctx, "data")
	if err != nil || string(got) != "1" {
		t.Errorf("cart namespace returned %s, %v", got, err)
	}

	// The base store sees the prefixed key layout
	raw, err := base.Get(ctx, "cart:data")
	if err != nil || string(raw) != "1" {
		t.Errorf("expected cart:data in base store, got %s, %v", raw, err)
	}

	keys, err := cartNS.Keys(ctx)
	if err != nil {
		t.Fatalf("keys failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != "data" {
		t.Errorf("namespace keys should be stripped, got %v", keys)
	}
}
