package kv

import (
	"context"
	"encoding/json"
	"strings"
)

// NamespaceStore prefixes every key with "<namespace>:" before
// delegating, so independent features sharing one backend cannot
// collide.
type NamespaceStore struct {
	inner  Store
	prefix string
}

// NewNamespace wraps a store under the given namespace.
func NewNamespace(inner Store, namespace string) *NamespaceStore {
	return &NamespaceStore{
		inner:  inner,
		prefix: namespace + ":",
	}
}

func (s *NamespaceStore) Get(ctx context.Context, key string) (json.RawMessage, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

func (s *NamespaceStore) Set(ctx context.Context, key string, value json.RawMessage) error {
	return s.inner.Set(ctx, s.prefix+key, value)
}

func (s *NamespaceStore) Remove(ctx context.Context, key string) error {
	return s.inner.Remove(ctx, s.prefix+key)
}

func (s *NamespaceStore) Has(ctx context.Context, key string) (bool, error) {
	return s.inner.Has(ctx, s.prefix+key)
}

// Keys returns only keys in this namespace, with the prefix stripped.
func (s *NamespaceStore) Keys(ctx context.Context) ([]string, error) {
	all, err := s.inner.Keys(ctx)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(all))
	for _, k := range all {
		if strings.HasPrefix(k, s.prefix) {
			keys = append(keys, strings.TrimPrefix(k, s.prefix))
		}
	}
	return keys, nil
}
