package database

import (
	"context"
	"errors"
)

// ErrStoreUnavailable is wrapped by every failure of a storage backend.
var ErrStoreUnavailable = errors.New("store unavailable")

// Store is a string key-value store. It stands in for the browser's
// localStorage (durable backends) and sessionStorage (ephemeral backends).
type Store interface {
	// Get returns the value stored under key. found is false when the key is absent.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set replaces the value stored under key.
	Set(ctx context.Context, key, value string) error
}
