package store

import (
	"time"
)

// SetOptions control a single write.
type SetOptions struct {
	// IfNotExist makes the write fail with ErrConditionFailed if the key is present.
	IfNotExist bool
	// Expiration is the time to live of the written value. Zero means no expiration.
	// Only backends with a native TTL (RedisStore) honour it.
	Expiration time.Duration
}

// Option mutates SetOptions.
type Option func(*SetOptions)

// IfNotExist requests a conditional write.
func IfNotExist() Option {
	return func(o *SetOptions) {
		o.IfNotExist = true
	}
}

// WithExpiration sets the time to live of the written value.
func WithExpiration(d time.Duration) Option {
	return func(o *SetOptions) {
		o.Expiration = d
	}
}

// ApplyOptions folds opts into a SetOptions value.
func ApplyOptions(opts ...Option) SetOptions {
	var o SetOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
