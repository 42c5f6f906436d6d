// Package cmd implements the kvkit command line interface.
//
// The package is organized into several subpackages:
//
//   - load: one-shot load of a bulk source into the configured store
//   - watch: keeps a store in sync with its source and serves metrics
//   - kv: key-value operations against the configured store and the perf tool
//   - lock: advisory locks on top of the configured store
//   - util: shared configuration and pipeline wiring (internal use)
//
// All commands read the same configuration: an optional file (--config),
// KVKIT_* environment variables and flags, in increasing precedence.
//
// See kvkit -help for a list of all commands.
package cmd
