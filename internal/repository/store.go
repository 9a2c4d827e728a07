package repository

import (
	"context"
	"errors"
)

// ErrNotFound is returned by typed lookups when no record exists.
var ErrNotFound = errors.New("not found")

// Store is a persistent key-value store of string-keyed string values.
// Two backends exist: an embedded Badger database (default) and a Postgres
// table for deployments that already run a database.
type Store interface {
	// Get returns the value for key. found is false when the key is absent.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set writes or overwrites the value for key.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys returns all keys with the given prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Close releases backend resources.
	Close() error
}
