package sstore

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/kvkit/lib/store"
	"github.com/ValentinKolb/kvkit/lib/util"
)

// Options configures the sharded store behavior during initialization
type Options struct {
	NumShards int `mapstructure:"num_shards"` // Number of shards (0 = number of CPUs)
	Capacity  int `mapstructure:"capacity"`   // Initial capacity per shard (0 = default)
}

// DefaultOptions returns the default sharded store options
func DefaultOptions() *Options {
	return &Options{
		NumShards: runtime.NumCPU(),
	}
}

// shard is one independently locked partition
type shard[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]V
}

// Store partitions keys over independently locked shards.
type Store[K comparable, V any] struct {
	shards []*shard[K, V]
	hasher util.KeyHasher[K]
	closed atomic.Bool
}

// NewStore creates a new sharded store with the specified options (optional)
//
// Thread-safety: This function is not thread-safe and should only be called once
// during initialization.
func NewStore[K comparable, V any](opts *Options) *Store[K, V] {
	if opts == nil {
		opts = DefaultOptions()
	}
	numShards := opts.NumShards
	if numShards <= 0 {
		numShards = runtime.NumCPU()
	}

	shards := make([]*shard[K, V], numShards)
	for i := range shards {
		shards[i] = &shard[K, V]{data: make(map[K]V, opts.Capacity)}
	}

	return &Store[K, V]{
		shards: shards,
		hasher: util.NewKeyHasher[K](util.GenerateSeed()),
	}
}

// shardFor returns the shard position for a key.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *Store[K, V]) shardFor(key K) int {
	return util.ShardIndex(s.hasher(key), len(s.shards))
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store.Store)
// --------------------------------------------------------------------------

func (s *Store[K, V]) Get(_ context.Context, key K) (V, error) {
	sh := s.shards[s.shardFor(key)]
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	value, ok := sh.data[key]
	if !ok {
		return value, store.ErrKeyNotFound
	}
	return value, nil
}

func (s *Store[K, V]) Set(_ context.Context, key K, value V, opts ...store.Option) error {
	o := store.ApplyOptions(opts...)
	sh := s.shards[s.shardFor(key)]

	sh.mu.Lock()
	defer sh.mu.Unlock()

	return sh.setLocked(key, value, o)
}

func (s *Store[K, V]) Delete(_ context.Context, key K) error {
	sh := s.shards[s.shardFor(key)]
	sh.mu.Lock()
	defer sh.mu.Unlock()

	delete(sh.data, key)
	return nil
}

func (s *Store[K, V]) BatchSet(_ context.Context, keys []K, values []V, opts ...store.Option) ([]error, error) {
	if err := store.CheckBatch(keys, values); err != nil {
		return nil, err
	}
	o := store.ApplyOptions(opts...)
	errs := make([]error, len(keys))

	s.forEachShard(keys, func(sh *shard[K, V], positions []int) {
		sh.mu.Lock()
		defer sh.mu.Unlock()
		for _, i := range positions {
			errs[i] = sh.setLocked(keys[i], values[i], o)
		}
	})
	return errs, nil
}

func (s *Store[K, V]) BatchGet(_ context.Context, keys []K) ([]V, []error, error) {
	values := make([]V, len(keys))
	errs := make([]error, len(keys))

	s.forEachShard(keys, func(sh *shard[K, V], positions []int) {
		sh.mu.RLock()
		defer sh.mu.RUnlock()
		for _, i := range positions {
			value, ok := sh.data[keys[i]]
			if !ok {
				errs[i] = store.ErrKeyNotFound
				continue
			}
			values[i] = value
		}
	})
	return values, errs, nil
}

func (s *Store[K, V]) BatchDelete(_ context.Context, keys []K) ([]error, error) {
	s.forEachShard(keys, func(sh *shard[K, V], positions []int) {
		sh.mu.Lock()
		defer sh.mu.Unlock()
		for _, i := range positions {
			delete(sh.data, keys[i])
		}
	})
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
// Statistics
// --------------------------------------------------------------------------

// Stats describes the shard fill levels of a sharded store.
type Stats struct {
	NumShards         int                    `json:"num_shards"`
	Keys              int                    `json:"keys"`
	ShardSizes        []int                  `json:"shard_sizes"`
	ShardDistribution util.DistributionStats `json:"shard_distribution"`
}

// Stats returns a snapshot of the shard fill levels. Shards are read one after
// another, so the numbers are not a consistent cut under concurrent writes.
func (s *Store[K, V]) Stats() Stats {
	sizes := make([]int, len(s.shards))
	total := 0
	for i, sh := range s.shards {
		sh.mu.RLock()
		sizes[i] = len(sh.data)
		sh.mu.RUnlock()
		total += sizes[i]
	}

	return Stats{
		NumShards:         len(s.shards),
		Keys:              total,
		ShardSizes:        sizes,
		ShardDistribution: util.NewDistributionStats(sizes),
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// forEachShard groups key positions by shard and calls fn once per touched shard
func (s *Store[K, V]) forEachShard(keys []K, fn func(sh *shard[K, V], positions []int)) {
	if len(keys) == 0 {
		return
	}
	groups := make(map[int][]int, len(s.shards))
	for i, key := range keys {
		idx := s.shardFor(key)
		groups[idx] = append(groups[idx], i)
	}
	for idx, positions := range groups {
		fn(s.shards[idx], positions)
	}
}

// setLocked writes one entry, the caller holds the shard's write lock
func (sh *shard[K, V]) setLocked(key K, value V, o store.SetOptions) error {
	if o.IfNotExist {
		if _, exists := sh.data[key]; exists {
			return store.ErrConditionFailed
		}
	}
	sh.data[key] = value
	return nil
}
