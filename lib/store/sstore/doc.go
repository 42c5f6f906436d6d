// Package sstore implements store.Store by partitioning the key space over N
// independently locked shards.
//
// Each shard owns a map and a RWMutex. A key is mapped to its shard through a
// seeded hash that is fixed for the lifetime of the store, so repeated lookups of
// the same key always hit the same shard. Write contention drops roughly by the
// number of shards compared to the coarse lock store.
//
// Batch operations group keys by shard and take each shard lock once. Results are
// written back to the positions of the input keys.
//
// Stats reports the fill level of every shard together with a distribution
// quality score, which is useful to judge the hash for a given key type.
package sstore
