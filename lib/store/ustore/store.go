package ustore

import (
	"context"

	"github.com/ValentinKolb/kvkit/lib/store"
)

// Options configures an unsafe store.
type Options struct {
	Capacity int `mapstructure:"capacity"` // Initial arena capacity (0 = default)
}

// DefaultOptions returns the default options
func DefaultOptions() *Options {
	return &Options{}
}

type slot[K comparable, V any] struct {
	key   K
	value V
	used  bool
}

// Store is a single writer arena store. See the package doc for the precondition.
type Store[K comparable, V any] struct {
	index  map[K]int32
	slots  []slot[K, V]
	free   []int32
	closed bool
}

// NewStore creates an empty unsafe store (opts may be nil).
func NewStore[K comparable, V any](opts *Options) *Store[K, V] {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Store[K, V]{
		index: make(map[K]int32, opts.Capacity),
		slots: make([]slot[K, V], 0, opts.Capacity),
	}
}

// SingleWriter marks the store as unsafe for concurrent use.
func (s *Store[K, V]) SingleWriter() bool {
	return true
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store.Store)
// --------------------------------------------------------------------------

func (s *Store[K, V]) Get(_ context.Context, key K) (V, error) {
	if idx, ok := s.index[key]; ok {
		return s.slots[idx].value, nil
	}
	var zero V
	return zero, store.ErrKeyNotFound
}

func (s *Store[K, V]) Set(_ context.Context, key K, value V, opts ...store.Option) error {
	return s.set(key, value, store.ApplyOptions(opts...))
}

func (s *Store[K, V]) Delete(_ context.Context, key K) error {
	s.remove(key)
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
		idx, ok := s.index[key]
		if !ok {
			errs[i] = store.ErrKeyNotFound
			continue
		}
		values[i] = s.slots[idx].value
	}
	return values, errs, nil
}

func (s *Store[K, V]) BatchDelete(_ context.Context, keys []K) ([]error, error) {
	for _, key := range keys {
		s.remove(key)
	}
	return make([]error, len(keys)), nil
}

func (s *Store[K, V]) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *Store[K, V]) Closed() bool {
	return s.closed
}

// --------------------------------------------------------------------------
// Arena
// --------------------------------------------------------------------------

// Len returns the number of live entries.
func (s *Store[K, V]) Len() int {
	return len(s.index)
}

// Slots returns the arena size including free slots.
func (s *Store[K, V]) Slots() int {
	return len(s.slots)
}

func (s *Store[K, V]) set(key K, value V, o store.SetOptions) error {
	if idx, ok := s.index[key]; ok {
		if o.IfNotExist {
			return store.ErrConditionFailed
		}
		s.slots[idx].value = value
		return nil
	}

	var idx int32
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
		s.slots[idx] = slot[K, V]{key: key, value: value, used: true}
	} else {
		idx = int32(len(s.slots))
		s.slots = append(s.slots, slot[K, V]{key: key, value: value, used: true})
	}
	s.index[key] = idx
	return nil
}

func (s *Store[K, V]) remove(key K) {
	idx, ok := s.index[key]
	if !ok {
		return
	}
	delete(s.index, key)
	// drop references held by the slot so the values can be collected
	s.slots[idx] = slot[K, V]{}
	s.free = append(s.free, idx)
}
