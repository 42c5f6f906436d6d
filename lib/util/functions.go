package util

import (
	"crypto/rand"
	"encoding/binary"
	"hash/maphash"
	"time"
)

// --------------------------------------------------------------------------
// General Utility Functions
// --------------------------------------------------------------------------

// GenerateSeed creates a random seed for internal hash distribution
func GenerateSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing is close to impossible, fall back to the clock
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}

// --------------------------------------------------------------------------
// Hash Functions
// --------------------------------------------------------------------------

// HashString generates a hash value for a string with a seed
// This function uses the FNV-1a hash algorithm, which is fast and has good distribution
func HashString(s string, seed uint64) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)

	hash := uint64(offset64) ^ seed
	for i := 0; i < len(s); i++ {
		hash ^= uint64(s[i])
		hash *= prime64
	}
	return hash
}

// KeyHasher maps a key to a stable 64 bit hash for the lifetime of the hasher.
type KeyHasher[K comparable] func(key K) uint64

// NewKeyHasher returns a seeded hasher for K.
// String keys use HashString, every other comparable type uses maphash.
func NewKeyHasher[K comparable](seed uint64) KeyHasher[K] {
	var zero K
	if _, isString := any(zero).(string); isString {
		return func(key K) uint64 {
			return HashString(any(key).(string), seed)
		}
	}

	mapSeed := maphash.MakeSeed()
	return func(key K) uint64 {
		return maphash.Comparable(mapSeed, key) ^ seed
	}
}

// ShardIndex picks a shard position for a hash.
//
// Thread-safety: This function is pure and can be called concurrently.
func ShardIndex(hash uint64, numShards int) int {
	// Shift right by 7 bits to use higher-quality bits for distribution
	return int((hash >> 7) % uint64(numShards))
}
