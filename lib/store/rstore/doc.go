// Package rstore implements store.Store on top of a Redis server.
//
// Keys and values pass through serializer.Serializer instances before they are
// sent, so any K and V can be stored as long as a serializer for them exists.
// Every operation may block on network I/O and honours the context passed in.
//
// Mapping onto Redis:
//
//	Get          GET, a nil reply becomes store.ErrKeyNotFound
//	Set          SET with EX, or SETNX with EX when IfNotExist is requested
//	Delete       DEL
//	BatchSet     one pipeline of SET/SETNX commands, outcome recorded per key
//	BatchGet     one MGET
//	BatchDelete  one DEL with all keys
//
// Expiration uses the per-write option or, if that is zero, Options.DefaultTTL.
//
// A failed network round trip of a batch command fails the whole call with
// CodeIO. Serialisation failures are reported per key.
//
// The constructor pings the server with exponential backoff until
// Options.ConnectTimeout elapses. Close is idempotent; operations after Close
// fail with CodeIO while the data stays on the server.
//
// Two stores with the same address, database and prefix see the same keys. A
// fresh store is therefore not empty, which rules out the replace strategy of
// the loader: its writes would be visible immediately and stale keys would
// survive. Use the inplace strategy with Redis.
package rstore
