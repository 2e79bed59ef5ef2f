package ports

import "context"

// StateStore is the shared key/value store the analyzer publishes into.
// Values are opaque encoded records. There is a single writer and many external readers.
type StateStore interface {
	// Set writes value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Get returns the stored value, or an error wrapping ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Close releases the underlying connection.
	Close() error
}
