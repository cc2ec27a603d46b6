// Package store defines the key-value contract every persistence backend
// implements. Backends live in sub-packages (redis, sqlite, memory).
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the key is absent.
	ErrNotFound = errors.New("store: key not found")
	// ErrUnavailable wraps every backend failure (network, disk, driver).
	ErrUnavailable = errors.New("store: backend unavailable")
)

// Store is a flat, non-transactional key-value store. Values are opaque
// bytes; there is no compare-and-swap and no multi-key atomicity.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Pinger is implemented by backends that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks s when it implements Pinger and reports healthy otherwise.
func Ping(ctx context.Context, s Store) error {
	if p, ok := s.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
