// Package ustore implements store.Store without any synchronisation.
//
// Precondition: the caller must serialise all access to a Store, either by using
// it from a single goroutine or by guarding it externally. Concurrent use is a
// data race and the race detector will report it. In exchange the store has the
// highest single-thread throughput of all backends.
//
// Entries live in an arena: a slot slice holds keys and values, an index map
// points from key to slot, and freed slots are recycled through a free list. The
// arena keeps values densely packed and avoids re-growing the index map when keys
// churn.
//
// The store reports SingleWriter() == true so test and benchmark harnesses can
// tell it apart from the thread-safe backends.
package ustore
