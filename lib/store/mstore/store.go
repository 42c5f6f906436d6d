package mstore

import (
	"context"
	"sync/atomic"

	"github.com/ValentinKolb/kvkit/lib/store"
	"github.com/puzpuzpuz/xsync/v3"
)

// Options configures a map store.
type Options struct {
	Capacity int `mapstructure:"capacity"` // Presize hint for the map (0 = default)
}

// DefaultOptions returns the default options
func DefaultOptions() *Options {
	return &Options{}
}

// Store wraps an xsync.MapOf.
type Store[K comparable, V any] struct {
	data   *xsync.MapOf[K, V]
	closed atomic.Bool
}

// NewStore creates an empty map store (opts may be nil).
func NewStore[K comparable, V any](opts *Options) *Store[K, V] {
	if opts == nil {
		opts = DefaultOptions()
	}
	var data *xsync.MapOf[K, V]
	if opts.Capacity > 0 {
		data = xsync.NewMapOf[K, V](xsync.WithPresize(opts.Capacity))
	} else {
		data = xsync.NewMapOf[K, V]()
	}
	return &Store[K, V]{data: data}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store.Store)
// --------------------------------------------------------------------------

func (s *Store[K, V]) Get(_ context.Context, key K) (V, error) {
	value, ok := s.data.Load(key)
	if !ok {
		return value, store.ErrKeyNotFound
	}
	return value, nil
}

func (s *Store[K, V]) Set(_ context.Context, key K, value V, opts ...store.Option) error {
	return s.set(key, value, store.ApplyOptions(opts...))
}

func (s *Store[K, V]) Delete(_ context.Context, key K) error {
	s.data.Delete(key)
	return nil
}

func (s *Store[K, V]) BatchSet(_ context.Context, keys []K, values []V, opts ...store.Option) ([]error, error) {
	if err := store.CheckBatch(keys, values); err != nil {
		return nil, err
	}
	o := store.ApplyOptions(opts...)
	errs := make([]error, len(keys))
	for i, key := range keys {
		errs[i] = s.set(key, values[i], o)
	}
	return errs, nil
}

func (s *Store[K, V]) BatchGet(_ context.Context, keys []K) ([]V, []error, error) {
	values := make([]V, len(keys))
	errs := make([]error, len(keys))
	for i, key := range keys {
		value, ok := s.data.Load(key)
		if !ok {
			errs[i] = store.ErrKeyNotFound
			continue
		}
		values[i] = value
	}
	return values, errs, nil
}

func (s *Store[K, V]) BatchDelete(_ context.Context, keys []K) ([]error, error) {
	for _, key := range keys {
		s.data.Delete(key)
	}
	return make([]error, len(keys)), nil
}

func (s *Store[K, V]) Close() error {
	s.closed.Store(true)
	return nil
}

// Closed reports whether Close was called.
func (s *Store[K, V]) Closed() bool {
	return s.closed.Load()
}

// --------------------------------------------------------------------------
// Additional Methods
// --------------------------------------------------------------------------

// Len returns the number of stored keys.
func (s *Store[K, V]) Len() int {
	return s.data.Size()
}

// Range calls fn for every entry until fn returns false. The iteration is not a
// snapshot, concurrent writes may or may not be observed.
func (s *Store[K, V]) Range(fn func(key K, value V) bool) {
	s.data.Range(fn)
}

func (s *Store[K, V]) set(key K, value V, o store.SetOptions) error {
	if o.IfNotExist {
		if _, loaded := s.data.LoadOrStore(key, value); loaded {
			return store.ErrConditionFailed
		}
		return nil
	}
	s.data.Store(key, value)
	return nil
}
