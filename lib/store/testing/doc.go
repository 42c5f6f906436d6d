// Package testing provides standardised tests and benchmarks for
// store implementations that satisfy the store.Store interface.
//
// The package contains:
//   - testing: A conformance suite for the Store contract (misses, conditional writes,
//     batch alignment, length mismatch, close semantics, concurrent use)
//   - benchmark: Throughput tests for the common operations
//
// Backends that opt out of concurrent use (see SingleWriter) skip the concurrency
// tests and are benchmarked sequentially.
//
// Example usage:
//
//	// Creating a factory function for your implementation
//	factory := func() store.Store[string, string] {
//		return NewMyStore()
//	}
//
//	// Running the standard test suite
//	storetesting.RunStoreTests(t, "MyStore", factory)
//
//	// Running performance benchmarks
//	storetesting.RunStoreBenchmarks(b, "MyStore", factory)
package testing
