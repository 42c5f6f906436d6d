package registry

import (
	"context"

	"github.com/ValentinKolb/kvkit/lib/serializer"
	"github.com/ValentinKolb/kvkit/lib/store"
	"github.com/ValentinKolb/kvkit/lib/store/cstore"
	"github.com/ValentinKolb/kvkit/lib/store/mstore"
	"github.com/ValentinKolb/kvkit/lib/store/rstore"
	"github.com/ValentinKolb/kvkit/lib/store/sstore"
	"github.com/ValentinKolb/kvkit/lib/store/ustore"
)

// Store type names
const (
	CoarseLockStore = "CoarseLockStore"
	ShardedStore    = "ShardedStore"
	UnsafeStore     = "UnsafeStore"
	MapStore        = "MapStore"
	RedisStore      = "RedisStore"
)

// redisOptions adds the serializer choice to the connection options
type redisOptions struct {
	rstore.Options  `mapstructure:",squash"`
	KeySerializer   string `mapstructure:"key_serializer"`   // default json
	ValueSerializer string `mapstructure:"value_serializer"` // default json
}

// NewStores returns a registry holding every built-in backend.
func NewStores[K comparable, V any]() *Registry[store.Store[K, V]] {
	r := New[store.Store[K, V]]("store")
	RegisterStores(r)
	return r
}

// RegisterStores adds the built-in backends to r.
func RegisterStores[K comparable, V any](r *Registry[store.Store[K, V]]) {
	r.Register(CoarseLockStore, func(_ context.Context, options map[string]any) (store.Store[K, V], error) {
		opts, err := decodeInto(options, cstore.DefaultOptions())
		if err != nil {
			return nil, err
		}
		return cstore.NewStore[K, V](opts), nil
	})

	r.Register(ShardedStore, func(_ context.Context, options map[string]any) (store.Store[K, V], error) {
		opts, err := decodeInto(options, sstore.DefaultOptions())
		if err != nil {
			return nil, err
		}
		return sstore.NewStore[K, V](opts), nil
	})

	r.Register(UnsafeStore, func(_ context.Context, options map[string]any) (store.Store[K, V], error) {
		opts, err := decodeInto(options, ustore.DefaultOptions())
		if err != nil {
			return nil, err
		}
		return ustore.NewStore[K, V](opts), nil
	})

	r.Register(MapStore, func(_ context.Context, options map[string]any) (store.Store[K, V], error) {
		opts, err := decodeInto(options, mstore.DefaultOptions())
		if err != nil {
			return nil, err
		}
		return mstore.NewStore[K, V](opts), nil
	})

	r.Register(RedisStore, func(ctx context.Context, options map[string]any) (store.Store[K, V], error) {
		opts, err := decodeInto(options, &redisOptions{Options: *rstore.DefaultOptions()})
		if err != nil {
			return nil, err
		}
		keys, err := serializer.New[K](opts.KeySerializer)
		if err != nil {
			return nil, store.WrapError(store.CodeOther, err, "key serializer")
		}
		values, err := serializer.New[V](opts.ValueSerializer)
		if err != nil {
			return nil, store.WrapError(store.CodeOther, err, "value serializer")
		}
		s, err := rstore.NewStore[K, V](ctx, &opts.Options, keys, values)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

// Factory returns a store.Factory that builds opts from r on every call.
func Factory[K comparable, V any](ctx context.Context, r *Registry[store.Store[K, V]], opts TypeOptions) store.Factory[K, V] {
	return func() (store.Store[K, V], error) {
		return r.Build(ctx, opts)
	}
}
