// Package storage provides the key-value store abstraction that session
// records are persisted in.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("key not found")

// Store is a persistent string-keyed store. Implementations must be safe for
// concurrent use, but no operation spans more than one key atomically except
// MultiRemove, and even that only where the backend happens to support it.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	// MultiRemove deletes every key given. Missing keys are ignored.
	MultiRemove(ctx context.Context, keys ...string) error
	Keys(ctx context.Context) ([]string, error)
}
