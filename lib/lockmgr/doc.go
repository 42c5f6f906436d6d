// Package lockmgr implements advisory locks on top of any store.Store[string, []byte].
//
// The lock manager keeps no state of its own, everything lives in the store.
// It is therefore safe to create several managers on the same store, or a new
// one per operation.
//
// Implementation Approach:
//
//   - Acquire: writes a random owner ID with IfNotExist. Exactly one writer can
//     create the key, every other writer sees ErrConditionFailed and is told the
//     lock is held. The write carries the lock TTL as expiration, so backends with a
//     native TTL (RedisStore) release locks of crashed holders on their own. The
//     in-memory backends ignore the TTL.
//
//   - Release: reads the key and deletes it only if the stored owner ID matches.
//     Releasing a lock that does not exist succeeds.
//
//   - Wait: AcquireLockWait retries Acquire with exponential backoff until the lock
//     is acquired or the context ends.
//
// The read-compare-delete of Release is not atomic. A lock that expires between
// the read and the delete can be released on behalf of the next holder; keep TTLs
// well above the time a holder needs.
package lockmgr
