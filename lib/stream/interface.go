package stream

import (
	"context"

	"github.com/ValentinKolb/kvkit/lib/parser"
)

// Visitor receives one record. Returning an error stops the iteration and the
// error is returned from Each unchanged.
type Visitor[K comparable, V any] func(rec parser.Record[K, V]) error

// Stream is a finite, restartable sequence of change records.
type Stream[K comparable, V any] interface {
	Each(ctx context.Context, fn Visitor[K, V]) error
}

// --------------------------------------------------------------------------
// In-memory streams
// --------------------------------------------------------------------------

// EmptyStream yields no records.
type EmptyStream[K comparable, V any] struct{}

func (EmptyStream[K, V]) Each(ctx context.Context, _ Visitor[K, V]) error {
	return ctx.Err()
}

// SliceStream yields the records of the slice in order.
type SliceStream[K comparable, V any] []parser.Record[K, V]

func (s SliceStream[K, V]) Each(ctx context.Context, fn Visitor[K, V]) error {
	for _, rec := range s {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}
