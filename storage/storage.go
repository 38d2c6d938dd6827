// Package storage defines the opaque key-value boundary agents use for
// their own state. The runtime never inspects stored values; hosts may
// back it with anything that satisfies Store.
package storage

import "errors"

// Common errors.
var (
	// ErrNotFound indicates the requested key does not exist.
	ErrNotFound = errors.New("key not found")

	// ErrClosed indicates the store has been closed.
	ErrClosed = errors.New("store closed")

	// ErrInvalidKey indicates an empty or malformed key.
	ErrInvalidKey = errors.New("invalid key")
)

// Store is opaque key-value persistence scoped to one host.
type Store interface {
	// Get retrieves a value by key.
	// Returns ErrNotFound if the key does not exist.
	Get(key string) ([]byte, error)

	// Set stores a value under a key, creating or replacing it.
	Set(key string, value []byte) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(key string) error

	// List returns all keys with the given prefix, sorted. An empty
	// prefix lists every key.
	List(prefix string) ([]string, error)

	// Close releases the store. Further operations return ErrClosed.
	Close() error
}
