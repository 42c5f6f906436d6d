// Package mstore is the baseline store.Store implementation built on
// xsync.MapOf, a concurrent hash map with lock-free reads.
//
// Conditional writes map onto LoadOrStore, so exactly one of several concurrent
// IfNotExist writers wins. Batches are plain loops over single key operations and
// are therefore not atomic as a whole.
package mstore
