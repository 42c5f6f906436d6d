package rstore

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/kvkit/lib/serializer"
	"github.com/ValentinKolb/kvkit/lib/store"
	"github.com/cenkalti/backoff/v4"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/redis/go-redis/v9"
)

var log = logger.GetLogger("store")

// Options configures the connection and key layout of a Redis store
type Options struct {
	Addr           string        `mapstructure:"addr"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	DB             int           `mapstructure:"db"`
	PoolSize       int           `mapstructure:"pool_size"`       // 0 = go-redis default
	KeyPrefix      string        `mapstructure:"key_prefix"`      // prepended to every serialized key
	DefaultTTL     time.Duration `mapstructure:"default_ttl"`     // 0 = keys never expire
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`    // per connection attempt
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"` // total time for the initial ping
}

// DefaultOptions returns the default options
func DefaultOptions() *Options {
	return &Options{
		Addr:           "localhost:6379",
		DialTimeout:    5 * time.Second,
		ConnectTimeout: 30 * time.Second,
	}
}

// Store keeps its data in Redis.
type Store[K comparable, V any] struct {
	client     redis.UniversalClient
	ownsClient bool
	keys       serializer.Serializer[K]
	values     serializer.Serializer[V]
	prefix     string
	defaultTTL time.Duration
	closed     atomic.Bool
}

// NewStore connects to Redis and waits until the server answers a PING.
func NewStore[K comparable, V any](ctx context.Context, opts *Options, keys serializer.Serializer[K], values serializer.Serializer[V]) (*Store[K, V], error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Username:    opts.Username,
		Password:    opts.Password,
		DB:          opts.DB,
		PoolSize:    opts.PoolSize,
		DialTimeout: opts.DialTimeout,
	})

	if err := ping(ctx, client, opts.ConnectTimeout); err != nil {
		_ = client.Close()
		return nil, store.WrapError(store.CodeIO, err, "connect to redis at "+opts.Addr)
	}

	s := NewStoreWithClient(client, opts, keys, values)
	s.ownsClient = true
	return s, nil
}

// NewStoreWithClient wraps an existing client. The client is not closed by Close.
func NewStoreWithClient[K comparable, V any](client redis.UniversalClient, opts *Options, keys serializer.Serializer[K], values serializer.Serializer[V]) *Store[K, V] {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Store[K, V]{
		client:     client,
		keys:       keys,
		values:     values,
		prefix:     opts.KeyPrefix,
		defaultTTL: opts.DefaultTTL,
	}
}

// ping retries PING with exponential backoff until it succeeds or maxElapsed passes
func ping(ctx context.Context, client redis.UniversalClient, maxElapsed time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxElapsed

	return backoff.RetryNotify(
		func() error {
			return client.Ping(ctx).Err()
		},
		backoff.WithContext(b, ctx),
		func(err error, next time.Duration) {
			log.Warningf("redis not reachable (%v), retrying in %s", err, next)
		},
	)
}

// Remote reports that the data lives outside the process.
func (s *Store[K, V]) Remote() bool {
	return true
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store.Store)
// --------------------------------------------------------------------------

func (s *Store[K, V]) Get(ctx context.Context, key K) (V, error) {
	var zero V
	rkey, err := s.encodeKey(key)
	if err != nil {
		return zero, err
	}

	data, err := s.client.Get(ctx, rkey).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, store.ErrKeyNotFound
	}
	if err != nil {
		return zero, store.WrapError(store.CodeIO, err, "redis GET")
	}
	return s.decodeValue(data)
}

func (s *Store[K, V]) Set(ctx context.Context, key K, value V, opts ...store.Option) error {
	o := store.ApplyOptions(opts...)
	rkey, data, err := s.encodeEntry(key, value)
	if err != nil {
		return err
	}

	if o.IfNotExist {
		ok, err := s.client.SetNX(ctx, rkey, data, s.ttl(o)).Result()
		if err != nil {
			return store.WrapError(store.CodeIO, err, "redis SETNX")
		}
		if !ok {
			return store.ErrConditionFailed
		}
		return nil
	}

	if err := s.client.Set(ctx, rkey, data, s.ttl(o)).Err(); err != nil {
		return store.WrapError(store.CodeIO, err, "redis SET")
	}
	return nil
}

func (s *Store[K, V]) Delete(ctx context.Context, key K) error {
	rkey, err := s.encodeKey(key)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, rkey).Err(); err != nil {
		return store.WrapError(store.CodeIO, err, "redis DEL")
	}
	return nil
}

func (s *Store[K, V]) BatchSet(ctx context.Context, keys []K, values []V, opts ...store.Option) ([]error, error) {
	if err := store.CheckBatch(keys, values); err != nil {
		return nil, err
	}
	o := store.ApplyOptions(opts...)
	ttl := s.ttl(o)
	errs := make([]error, len(keys))
	if len(keys) == 0 {
		return errs, nil
	}

	pipe := s.client.Pipeline()
	setCmds := make([]*redis.StatusCmd, len(keys))
	nxCmds := make([]*redis.BoolCmd, len(keys))
	queued := 0
	for i, key := range keys {
		rkey, data, err := s.encodeEntry(key, values[i])
		if err != nil {
			errs[i] = err
			continue
		}
		if o.IfNotExist {
			nxCmds[i] = pipe.SetNX(ctx, rkey, data, ttl)
		} else {
			setCmds[i] = pipe.Set(ctx, rkey, data, ttl)
		}
		queued++
	}
	if queued == 0 {
		return errs, nil
	}

	// Exec reports the first failed command, the per-command results below are authoritative
	if _, err := pipe.Exec(ctx); err != nil && !isCommandError(err) {
		return nil, store.WrapError(store.CodeIO, err, "redis pipeline")
	}

	for i := range keys {
		switch {
		case nxCmds[i] != nil:
			ok, err := nxCmds[i].Result()
			if err != nil {
				errs[i] = store.WrapError(store.CodeIO, err, "redis SETNX")
			} else if !ok {
				errs[i] = store.ErrConditionFailed
			}
		case setCmds[i] != nil:
			if err := setCmds[i].Err(); err != nil {
				errs[i] = store.WrapError(store.CodeIO, err, "redis SET")
			}
		}
	}
	return errs, nil
}

func (s *Store[K, V]) BatchGet(ctx context.Context, keys []K) ([]V, []error, error) {
	values := make([]V, len(keys))
	errs := make([]error, len(keys))
	if len(keys) == 0 {
		return values, errs, nil
	}

	rkeys := make([]string, 0, len(keys))
	positions := make([]int, 0, len(keys))
	for i, key := range keys {
		rkey, err := s.encodeKey(key)
		if err != nil {
			errs[i] = err
			continue
		}
		rkeys = append(rkeys, rkey)
		positions = append(positions, i)
	}
	if len(rkeys) == 0 {
		return values, errs, nil
	}

	replies, err := s.client.MGet(ctx, rkeys...).Result()
	if err != nil {
		return nil, nil, store.WrapError(store.CodeIO, err, "redis MGET")
	}

	for j, reply := range replies {
		i := positions[j]
		switch v := reply.(type) {
		case nil:
			errs[i] = store.ErrKeyNotFound
		case string:
			values[i], errs[i] = s.decodeValue([]byte(v))
		default:
			errs[i] = store.Errorf(store.CodeIO, "unexpected MGET reply type %T", reply)
		}
	}
	return values, errs, nil
}

func (s *Store[K, V]) BatchDelete(ctx context.Context, keys []K) ([]error, error) {
	errs := make([]error, len(keys))
	rkeys := make([]string, 0, len(keys))
	for i, key := range keys {
		rkey, err := s.encodeKey(key)
		if err != nil {
			errs[i] = err
			continue
		}
		rkeys = append(rkeys, rkey)
	}
	if len(rkeys) == 0 {
		return errs, nil
	}

	if err := s.client.Del(ctx, rkeys...).Err(); err != nil {
		return nil, store.WrapError(store.CodeIO, err, "redis DEL")
	}
	return errs, nil
}

func (s *Store[K, V]) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if !s.ownsClient {
		return nil
	}
	if err := s.client.Close(); err != nil {
		return store.WrapError(store.CodeIO, err, "close redis client")
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func (s *Store[K, V]) ttl(o store.SetOptions) time.Duration {
	if o.Expiration > 0 {
		return o.Expiration
	}
	return s.defaultTTL
}

func (s *Store[K, V]) encodeKey(key K) (string, error) {
	if s.closed.Load() {
		return "", store.NewError(store.CodeIO, "redis store is closed")
	}
	b, err := s.keys.Serialize(key)
	if err != nil {
		return "", store.WrapError(store.CodeOther, err, "serialize key")
	}
	return s.prefix + string(b), nil
}

func (s *Store[K, V]) encodeEntry(key K, value V) (string, []byte, error) {
	rkey, err := s.encodeKey(key)
	if err != nil {
		return "", nil, err
	}
	data, err := s.values.Serialize(value)
	if err != nil {
		return "", nil, store.WrapError(store.CodeOther, err, "serialize value")
	}
	return rkey, data, nil
}

func (s *Store[K, V]) decodeValue(data []byte) (V, error) {
	value, err := s.values.Deserialize(data)
	if err != nil {
		return value, store.WrapError(store.CodeOther, err, "deserialize value")
	}
	return value, nil
}

// isCommandError reports whether a pipeline error is a server reply error of
// a single command rather than a transport failure.
func isCommandError(err error) bool {
	var redisErr redis.Error
	return errors.As(err, &redisErr)
}
