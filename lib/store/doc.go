// Package store provides the generic key-value store abstraction shared by all
// backends of this module, the option type for conditional and expiring writes,
// and the unified error taxonomy.
//
// The package focuses on:
//   - A single interface (Store) for point lookups, writes and deletes, plus batch
//     variants with per-key partial failure
//   - A structured error type whose codes callers can branch on with errors.Is
//
// Key Components:
//
//   - Store Interface: The core abstraction. Every backend implements it, so callers,
//     the loader and the benchmarks can swap implementations without touching call
//     sites. All operations take a context.Context; purely in-memory backends ignore it.
//
//   - Error System: Error carries an ErrorCode (KeyNotFound, ConditionFailed, Other,
//     Io, Parser, Watcher, Channel), a message and an optional cause. Matching is done
//     by code, so errors.Is(err, store.ErrKeyNotFound) holds for every key miss.
//
//   - Factory: A function type that creates a fresh, empty store. It is used by the
//     replace strategy of the loader to build a new store in isolation.
//
// Implementations:
//
//   - Coarse Lock Store (cstore): one RWMutex around a map.
//   - Sharded Store (sstore): keys partitioned over independently locked shards.
//   - Unsafe Store (ustore): no locking at all, single writer only.
//   - Map Store (mstore): baseline built on xsync.MapOf.
//   - Redis Store (rstore): network backend, values pass through a serializer.
//   - Metric Store (metricstore): decorator that instruments any other store.
//
// Batch semantics:
//
//	BatchSet fails with CodeOther and writes nothing if len(keys) != len(values).
//	Otherwise each key is attempted exactly once and its outcome is recorded in the
//	result slice at the same position. One key failing its condition does not stop
//	the others. BatchGet and BatchDelete never fail as a whole for in-memory backends.
//
// Lifecycle:
//
//	Stores are usable right after construction. Close is idempotent and releases
//	resources, it never erases data: in-memory stores keep answering reads after Close.
package store
