package cstore

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/kvkit/lib/store"
)

// Options configures a coarse lock store.
type Options struct {
	// Capacity is the initial map capacity (0 = default)
	Capacity int `mapstructure:"capacity"`
}

// DefaultOptions returns the default options
func DefaultOptions() *Options {
	return &Options{}
}

// Store guards a single map with one RWMutex.
type Store[K comparable, V any] struct {
	mu     sync.RWMutex
	data   map[K]V
	closed atomic.Bool
}

// NewStore creates an empty coarse lock store (opts may be nil).
func NewStore[K comparable, V any](opts *Options) *Store[K, V] {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Store[K, V]{
		data: make(map[K]V, opts.Capacity),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store.Store)
// --------------------------------------------------------------------------

func (s *Store[K, V]) Get(_ context.Context, key K) (V, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return value, store.ErrKeyNotFound
	}
	return value, nil
}

func (s *Store[K, V]) Set(_ context.Context, key K, value V, opts ...store.Option) error {
	o := store.ApplyOptions(opts...)

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.setLocked(key, value, o)
}

func (s *Store[K, V]) Delete(_ context.Context, key K) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

func (s *Store[K, V]) BatchSet(_ context.Context, keys []K, values []V, opts ...store.Option) ([]error, error) {
	if err := store.CheckBatch(keys, values); err != nil {
		return nil, err
	}
	o := store.ApplyOptions(opts...)
	errs := make([]error, len(keys))

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, key := range keys {
		errs[i] = s.setLocked(key, values[i], o)
	}
	return errs, nil
}

func (s *Store[K, V]) BatchGet(_ context.Context, keys []K) ([]V, []error, error) {
	values := make([]V, len(keys))
	errs := make([]error, len(keys))

	s.mu.RLock()
	defer s.mu.RUnlock()

	for i, key := range keys {
		value, ok := s.data[key]
		if !ok {
			errs[i] = store.ErrKeyNotFound
			continue
		}
		values[i] = value
	}
	return values, errs, nil
}

func (s *Store[K, V]) BatchDelete(_ context.Context, keys []K) ([]error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.data, key)
	}
	return make([]error, len(keys)), nil
}

func (s *Store[K, V]) Close() error {
	s.closed.Store(true)
	return nil
}

// --------------------------------------------------------------------------
// Additional Methods
// --------------------------------------------------------------------------

// Len returns the number of stored keys.
func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Closed reports whether Close was called.
func (s *Store[K, V]) Closed() bool {
	return s.closed.Load()
}

// setLocked writes one entry, the caller holds the write lock
func (s *Store[K, V]) setLocked(key K, value V, o store.SetOptions) error {
	if o.IfNotExist {
		if _, exists := s.data[key]; exists {
			return store.ErrConditionFailed
		}
	}
	s.data[key] = value
	return nil
}
