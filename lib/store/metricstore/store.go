package metricstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ValentinKolb/kvkit/lib/store"
	"github.com/VictoriaMetrics/metrics"
)

// operation names used as metric labels
const (
	opGet         = "get"
	opSet         = "set"
	opDelete      = "delete"
	opBatchSet    = "batch_set"
	opBatchGet    = "batch_get"
	opBatchDelete = "batch_delete"
)

var allOps = []string{opGet, opSet, opDelete, opBatchSet, opBatchGet, opBatchDelete}

// registry is implemented by *metrics.Set and by the default set wrapper
type registry interface {
	GetOrCreateCounter(name string) *metrics.Counter
	GetOrCreateHistogram(name string) *metrics.Histogram
}

type defaultSet struct{}

func (defaultSet) GetOrCreateCounter(name string) *metrics.Counter {
	return metrics.GetOrCreateCounter(name)
}

func (defaultSet) GetOrCreateHistogram(name string) *metrics.Histogram {
	return metrics.GetOrCreateHistogram(name)
}

type opMetrics struct {
	calls    *metrics.Counter
	errors   *metrics.Counter
	duration *metrics.Histogram
}

// Store instruments an inner store.
type Store[K comparable, V any] struct {
	inner  store.Store[K, V]
	ops    map[string]*opMetrics
	misses *metrics.Counter
}

// New wraps inner. set may be nil to use the default metrics set.
func New[K comparable, V any](inner store.Store[K, V], name string, set *metrics.Set) *Store[K, V] {
	var reg registry = defaultSet{}
	if set != nil {
		reg = set
	}

	ops := make(map[string]*opMetrics, len(allOps))
	for _, op := range allOps {
		ops[op] = &opMetrics{
			calls:    reg.GetOrCreateCounter(fmt.Sprintf(`kvkit_store_ops_total{store=%q,op=%q}`, name, op)),
			errors:   reg.GetOrCreateCounter(fmt.Sprintf(`kvkit_store_errors_total{store=%q,op=%q}`, name, op)),
			duration: reg.GetOrCreateHistogram(fmt.Sprintf(`kvkit_store_op_duration_seconds{store=%q,op=%q}`, name, op)),
		}
	}

	return &Store[K, V]{
		inner:  inner,
		ops:    ops,
		misses: reg.GetOrCreateCounter(fmt.Sprintf(`kvkit_store_misses_total{store=%q}`, name)),
	}
}

// Unwrap returns the instrumented store.
func (s *Store[K, V]) Unwrap() store.Store[K, V] {
	return s.inner
}

// observe records one call. Misses are counted separately from errors.
func (s *Store[K, V]) observe(op string, start time.Time, err error) {
	m := s.ops[op]
	m.calls.Inc()
	m.duration.UpdateDuration(start)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrKeyNotFound):
		s.misses.Inc()
	default:
		m.errors.Inc()
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store.Store)
// --------------------------------------------------------------------------

func (s *Store[K, V]) Get(ctx context.Context, key K) (V, error) {
	start := time.Now()
	value, err := s.inner.Get(ctx, key)
	s.observe(opGet, start, err)
	return value, err
}

func (s *Store[K, V]) Set(ctx context.Context, key K, value V, opts ...store.Option) error {
	start := time.Now()
	err := s.inner.Set(ctx, key, value, opts...)
	s.observe(opSet, start, err)
	return err
}

func (s *Store[K, V]) Delete(ctx context.Context, key K) error {
	start := time.Now()
	err := s.inner.Delete(ctx, key)
	s.observe(opDelete, start, err)
	return err
}

func (s *Store[K, V]) BatchSet(ctx context.Context, keys []K, values []V, opts ...store.Option) ([]error, error) {
	start := time.Now()
	errs, err := s.inner.BatchSet(ctx, keys, values, opts...)
	s.observe(opBatchSet, start, err)
	s.countKeyErrors(opBatchSet, errs)
	return errs, err
}

func (s *Store[K, V]) BatchGet(ctx context.Context, keys []K) ([]V, []error, error) {
	start := time.Now()
	values, errs, err := s.inner.BatchGet(ctx, keys)
	s.observe(opBatchGet, start, err)
	s.countKeyErrors(opBatchGet, errs)
	return values, errs, err
}

func (s *Store[K, V]) BatchDelete(ctx context.Context, keys []K) ([]error, error) {
	start := time.Now()
	errs, err := s.inner.BatchDelete(ctx, keys)
	s.observe(opBatchDelete, start, err)
	s.countKeyErrors(opBatchDelete, errs)
	return errs, err
}

func (s *Store[K, V]) Close() error {
	return s.inner.Close()
}

// countKeyErrors folds per-key batch results into the miss and error counters
func (s *Store[K, V]) countKeyErrors(op string, errs []error) {
	for _, err := range errs {
		switch {
		case err == nil:
		case errors.Is(err, store.ErrKeyNotFound):
			s.misses.Inc()
		default:
			s.ops[op].errors.Inc()
		}
	}
}
