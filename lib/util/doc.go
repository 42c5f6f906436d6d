// Package util provides small helpers shared by the store backends and the
// loader pipeline.
//
// The package contains:
//   - functions: seed generation, the seeded FNV-1a string hash and the generic
//     key hasher used to pick shards
//   - statistics: distribution metrics for shard fill levels and a lock-free
//     size histogram for record sizes seen by the loader
package util
