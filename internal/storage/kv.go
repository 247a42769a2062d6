// Package storage persists the budget snapshot in a key-value byte store.
//
// KV is the store abstraction (the browser's local storage in the original
// page). Backends: MemoryKV, SQLiteKV, FileKV, optionally wrapped by
// CachedKV. Persistence is the best-effort adapter the widget talks to.
package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("key not found")
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	ErrClosed        = errors.New("store closed")
)

// KV is a byte store with named slots.
type KV interface {
	// Get returns ErrNotFound when the key has no value.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete is a no-op for missing keys.
	Delete(ctx context.Context, key string) error
	Close() error
}
