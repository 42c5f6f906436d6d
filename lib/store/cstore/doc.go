// Package cstore implements store.Store with a single RWMutex guarding one map.
//
// All writers serialise on the lock; readers only block against writers. Batch
// operations take the lock once for the whole batch. This is the simplest correct
// backend and the reference the other backends are measured against.
//
// Close marks the store closed but keeps the map, so reads after Close still
// return previously written values.
package cstore
