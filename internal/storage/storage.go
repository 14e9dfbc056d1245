// Package storage provides the persistent key-value store backing the
// shopper's bag and pending order between requests and restarts.
package storage

import (
	"context"
	"errors"
)

// Storage holds whole serialized values by key. Writes overwrite in full.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

var ErrNotFound = errors.New("storage: key not found")

// Scoped prefixes every key with scope, isolating one browser session's
// values from another's inside a shared backend.
func Scoped(s Storage, scope string) Storage {
	return &scoped{inner: s, prefix: scope + ":"}
}

type scoped struct {
	inner  Storage
	prefix string
}

func (s *scoped) Get(ctx context.Context, key string) ([]byte, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

func (s *scoped) Set(ctx context.Context, key string, value []byte) error {
	return s.inner.Set(ctx, s.prefix+key, value)
}

func (s *scoped) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, s.prefix+key)
}
