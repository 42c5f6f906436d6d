package testing

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/ValentinKolb/kvkit/lib/store"
)

// RunStoreBenchmarks runs all benchmarks for a store implementation.
// Stores that are single writer only are driven from one goroutine.
func RunStoreBenchmarks(b *testing.B, name string, factory StoreFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Set", func(b *testing.B) {
			benchmarkSet(b, factory())
		})

		b.Run("SetExisting", func(b *testing.B) {
			benchmarkSetExisting(b, factory())
		})

		b.Run("SetLargeValue", func(b *testing.B) {
			benchmarkSetLargeValue(b, factory())
		})

		b.Run("Get", func(b *testing.B) {
			benchmarkGet(b, factory())
		})

		b.Run("Get(not)", func(b *testing.B) {
			benchmarkGetNot(b, factory())
		})

		b.Run("Delete", func(b *testing.B) {
			benchmarkDelete(b, factory())
		})

		b.Run("BatchSet", func(b *testing.B) {
			benchmarkBatchSet(b, factory())
		})

		b.Run("BatchGet", func(b *testing.B) {
			benchmarkBatchGet(b, factory())
		})

		b.Run("MixedUsage", func(b *testing.B) {
			benchmarkMixedUsage(b, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

const (
	benchKeySpread = 10_000
	benchBatchSize = 64
)

func benchKey(i int) string {
	return fmt.Sprintf("bench-key-%d", i%benchKeySpread)
}

// prefill writes every benchmark key once
func prefill(b *testing.B, s store.Store[string, string]) {
	ctx := context.Background()
	for i := 0; i < benchKeySpread; i++ {
		if err := s.Set(ctx, benchKey(i), "test-value"); err != nil {
			b.Fatalf("prefill failed: %v", err)
		}
	}
}

// runOps drives fn with b.RunParallel or, for single writer stores, from the
// benchmark goroutine. fn receives a per-goroutine counter.
func runOps(b *testing.B, s store.Store[string, string], fn func(counter int)) {
	b.ResetTimer()
	if sw, ok := s.(SingleWriter); ok && sw.SingleWriter() {
		for i := 0; i < b.N; i++ {
			fn(i)
		}
		return
	}

	b.RunParallel(func(pb *testing.PB) {
		counter := rand.Intn(benchKeySpread)
		for pb.Next() {
			fn(counter)
			counter++
		}
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// Benchmark for Set operation
func benchmarkSet(b *testing.B, s store.Store[string, string]) {
	b.Cleanup(func() {
		_ = s.Close()
	})
	ctx := context.Background()

	runOps(b, s, func(counter int) {
		_ = s.Set(ctx, fmt.Sprintf("set-key-%d", counter), "test-value")
	})
}

// Benchmark for Set operation with existing keys
func benchmarkSetExisting(b *testing.B, s store.Store[string, string]) {
	b.Cleanup(func() {
		_ = s.Close()
	})
	ctx := context.Background()
	prefill(b, s)

	runOps(b, s, func(counter int) {
		_ = s.Set(ctx, benchKey(counter), "updated-value")
	})
}

// Benchmark for Set operation with large values
func benchmarkSetLargeValue(b *testing.B, s store.Store[string, string]) {
	b.Cleanup(func() {
		_ = s.Close()
	})
	ctx := context.Background()
	largeValue := strings.Repeat("x", 64*1024) // 64KB

	runOps(b, s, func(counter int) {
		_ = s.Set(ctx, benchKey(counter), largeValue)
	})
}

// Benchmark for Get operation on present keys
func benchmarkGet(b *testing.B, s store.Store[string, string]) {
	b.Cleanup(func() {
		_ = s.Close()
	})
	ctx := context.Background()
	prefill(b, s)

	runOps(b, s, func(counter int) {
		_, _ = s.Get(ctx, benchKey(counter))
	})
}

// Benchmark for Get operation on absent keys
func benchmarkGetNot(b *testing.B, s store.Store[string, string]) {
	b.Cleanup(func() {
		_ = s.Close()
	})
	ctx := context.Background()

	runOps(b, s, func(counter int) {
		_, _ = s.Get(ctx, benchKey(counter))
	})
}

// Benchmark for Delete operation
func benchmarkDelete(b *testing.B, s store.Store[string, string]) {
	b.Cleanup(func() {
		_ = s.Close()
	})
	ctx := context.Background()
	prefill(b, s)

	runOps(b, s, func(counter int) {
		_ = s.Delete(ctx, benchKey(counter))
	})
}

// Benchmark for BatchSet with fixed size batches
func benchmarkBatchSet(b *testing.B, s store.Store[string, string]) {
	b.Cleanup(func() {
		_ = s.Close()
	})
	ctx := context.Background()

	keys := make([]string, benchBatchSize)
	values := make([]string, benchBatchSize)
	for i := range keys {
		keys[i] = benchKey(i)
		values[i] = "batch-value"
	}

	runOps(b, s, func(_ int) {
		_, _ = s.BatchSet(ctx, keys, values)
	})
}

// Benchmark for BatchGet with fixed size batches
func benchmarkBatchGet(b *testing.B, s store.Store[string, string]) {
	b.Cleanup(func() {
		_ = s.Close()
	})
	ctx := context.Background()
	prefill(b, s)

	keys := make([]string, benchBatchSize)
	for i := range keys {
		keys[i] = benchKey(i * 7)
	}

	runOps(b, s, func(_ int) {
		_, _, _ = s.BatchGet(ctx, keys)
	})
}

// Benchmark for a mix of operations
func benchmarkMixedUsage(b *testing.B, s store.Store[string, string]) {
	b.Cleanup(func() {
		_ = s.Close()
	})
	ctx := context.Background()
	prefill(b, s)

	runOps(b, s, func(counter int) {
		key := benchKey(counter)
		switch counter % 4 {
		case 0:
			_ = s.Set(ctx, key, "mixed-value")
		case 1, 2:
			_, _ = s.Get(ctx, key)
		case 3:
			_ = s.Delete(ctx, key)
		}
	})
}
