package store

import (
	"context"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Factory is a function type that creates a new, empty store.
// The loader uses it to build a fresh store for every replace reload.
type Factory[K comparable, V any] func() (Store[K, V], error)

// Store is the generic interface for interacting with a key–value store.
//
// Every operation takes a context. In-memory backends never block on it,
// network backends honour its cancellation and deadline.
type Store[K comparable, V any] interface {
	// Get returns the value for a key. A missing key fails with ErrKeyNotFound.
	Get(ctx context.Context, key K) (V, error)
	// Set inserts or replaces the value for a key.
	// With IfNotExist the write fails with ErrConditionFailed if the key is present.
	Set(ctx context.Context, key K, value V, opts ...Option) error
	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key K) error
	// BatchSet writes every key once and records the outcome per key.
	// A length mismatch between keys and values fails the whole call before
	// anything is written.
	BatchSet(ctx context.Context, keys []K, values []V, opts ...Option) ([]error, error)
	// BatchGet returns values and per-key errors aligned with keys.
	// For a missing key values[i] is the zero value and errs[i] is ErrKeyNotFound.
	BatchGet(ctx context.Context, keys []K) (values []V, errs []error, err error)
	// BatchDelete removes every key. The per-key results are always nil for
	// in-memory backends.
	BatchDelete(ctx context.Context, keys []K) ([]error, error)
	// Close releases backend resources. It is idempotent and does not erase data.
	Close() error
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// CheckBatch validates the shape of a batch write.
func CheckBatch[K any, V any](keys []K, values []V) error {
	if len(keys) != len(values) {
		return Errorf(CodeOther, "batch length mismatch: %d keys, %d values", len(keys), len(values))
	}
	return nil
}
