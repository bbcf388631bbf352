// Package storage defines the persistence port for the court session
// document and its backends. The document is an opaque byte string to this
// package; callers own its encoding.
//
// Every backend must make Update atomic with respect to other Updates of
// the same key, because the session store rewrites the whole multi-court
// document on each mutation.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("storage: key not found")

// UpdateFunc receives the current value (nil when the key does not exist)
// and returns the value to write. Returning an error aborts the update
// without writing. An UpdateFunc may be called more than once when a
// backend retries after a concurrent write, so it must not have side effects.
type UpdateFunc func(current []byte) ([]byte, error)

// Store is a get/set key-value store over string keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error

	// Update performs an atomic read-modify-write of a single key.
	Update(ctx context.Context, key string, fn UpdateFunc) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
}
