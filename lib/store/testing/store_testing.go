package testing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/kvkit/lib/store"
)

// StoreFactory is a function that creates a new, empty instance of a Store implementation
type StoreFactory func() store.Store[string, string]

// SingleWriter is implemented by stores that must not be used concurrently.
type SingleWriter interface {
	SingleWriter() bool
}

// Remote is implemented by stores whose data lives outside the process.
// Their reads after Close are not expected to succeed.
type Remote interface {
	Remote() bool
}

// RunStoreTests runs a comprehensive test suite for a Store implementation.
func RunStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("GetMissing", func(t *testing.T) {
			testGetMissing(t, factory())
		})

		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory())
		})

		t.Run("IfNotExist", func(t *testing.T) {
			testIfNotExist(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("BatchSet", func(t *testing.T) {
			testBatchSet(t, factory())
		})

		t.Run("BatchSetLengthMismatch", func(t *testing.T) {
			testBatchSetLengthMismatch(t, factory())
		})

		t.Run("BatchGet", func(t *testing.T) {
			testBatchGet(t, factory())
		})

		t.Run("BatchDelete", func(t *testing.T) {
			testBatchDelete(t, factory())
		})

		t.Run("CloseKeepsData", func(t *testing.T) {
			testCloseKeepsData(t, factory())
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory())
		})

		t.Run("ConcurrentAccess", func(t *testing.T) {
			testConcurrentAccess(t, factory())
		})

		t.Run("ConcurrentIfNotExist", func(t *testing.T) {
			testConcurrentIfNotExist(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Skips the test if the store forfeits thread safety
func requireConcurrency(t testing.TB, s store.Store[string, string]) {
	if sw, ok := s.(SingleWriter); ok && sw.SingleWriter() {
		t.Skip("store is single writer only")
	}
}

func requireValue(t *testing.T, s store.Store[string, string], key, expected string) {
	t.Helper()
	value, err := s.Get(context.Background(), key)
	if err != nil {
		t.Errorf("Expected key %s to exist, got error: %v", key, err)
		return
	}
	if value != expected {
		t.Errorf("Expected value %q for key %s, got %q", expected, key, value)
	}
}

func requireMissing(t *testing.T, s store.Store[string, string], key string) {
	t.Helper()
	_, err := s.Get(context.Background(), key)
	if !errors.Is(err, store.ErrKeyNotFound) {
		t.Errorf("Expected KeyNotFound for key %s, got %v", key, err)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testGetMissing(t *testing.T, s store.Store[string, string]) {
	defer s.Close()

	requireMissing(t, s, "nonexistent-key")

	_, err := s.Get(context.Background(), "nonexistent-key")
	if store.CodeOf(err) != store.CodeKeyNotFound {
		t.Errorf("Expected code KeyNotFound, got %s", store.CodeOf(err))
	}
}

func testSetGet(t *testing.T, s store.Store[string, string]) {
	defer s.Close()
	ctx := context.Background()

	if err := s.Set(ctx, "test-key", "test-value1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	requireValue(t, s, "test-key", "test-value1")

	// a second write replaces the value completely
	if err := s.Set(ctx, "test-key", "v2"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	requireValue(t, s, "test-key", "v2")

	requireMissing(t, s, "other-key")
}

func testIfNotExist(t *testing.T, s store.Store[string, string]) {
	defer s.Close()
	ctx := context.Background()

	if err := s.Set(ctx, "cond-key", "v1", store.IfNotExist()); err != nil {
		t.Fatalf("Expected conditional set on absent key to succeed, got %v", err)
	}

	err := s.Set(ctx, "cond-key", "v2", store.IfNotExist())
	if !errors.Is(err, store.ErrConditionFailed) {
		t.Errorf("Expected ConditionFailed, got %v", err)
	}
	requireValue(t, s, "cond-key", "v1")

	// an unconditional write still goes through
	if err := s.Set(ctx, "cond-key", "v3"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	requireValue(t, s, "cond-key", "v3")

	// after a delete the condition holds again
	if err := s.Delete(ctx, "cond-key"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Set(ctx, "cond-key", "v4", store.IfNotExist()); err != nil {
		t.Errorf("Expected conditional set after delete to succeed, got %v", err)
	}
	requireValue(t, s, "cond-key", "v4")
}

func testDelete(t *testing.T, s store.Store[string, string]) {
	defer s.Close()
	ctx := context.Background()

	if err := s.Delete(ctx, "never-set"); err != nil {
		t.Errorf("Expected delete of absent key to succeed, got %v", err)
	}

	if err := s.Set(ctx, "del-key", "value"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Delete(ctx, "del-key"); err != nil {
		t.Errorf("Delete failed: %v", err)
	}
	requireMissing(t, s, "del-key")

	// deleting twice is fine
	if err := s.Delete(ctx, "del-key"); err != nil {
		t.Errorf("Expected second delete to succeed, got %v", err)
	}
}

func testBatchSet(t *testing.T, s store.Store[string, string]) {
	defer s.Close()
	ctx := context.Background()

	if err := s.Set(ctx, "b", "old"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	keys := []string{"a", "b", "c"}
	values := []string{"1", "2", "3"}
	errs, err := s.BatchSet(ctx, keys, values, store.IfNotExist())
	if err != nil {
		t.Fatalf("BatchSet failed: %v", err)
	}
	if len(errs) != len(keys) {
		t.Fatalf("Expected %d results, got %d", len(keys), len(errs))
	}

	if errs[0] != nil || errs[2] != nil {
		t.Errorf("Expected a and c to succeed, got %v and %v", errs[0], errs[2])
	}
	if !errors.Is(errs[1], store.ErrConditionFailed) {
		t.Errorf("Expected ConditionFailed for b, got %v", errs[1])
	}

	requireValue(t, s, "a", "1")
	requireValue(t, s, "b", "old")
	requireValue(t, s, "c", "3")

	// unconditional batch overwrites
	errs, err = s.BatchSet(ctx, keys, []string{"x", "y", "z"})
	if err != nil {
		t.Fatalf("BatchSet failed: %v", err)
	}
	for i, e := range errs {
		if e != nil {
			t.Errorf("Expected key %s to succeed, got %v", keys[i], e)
		}
	}
	requireValue(t, s, "b", "y")
}

func testBatchSetLengthMismatch(t *testing.T, s store.Store[string, string]) {
	defer s.Close()
	ctx := context.Background()

	errs, err := s.BatchSet(ctx, []string{"k1", "k2"}, []string{"v1"})
	if store.CodeOf(err) != store.CodeOther || err == nil {
		t.Errorf("Expected error with code Other, got %v", err)
	}
	if errs != nil {
		t.Errorf("Expected no per-key results, got %v", errs)
	}

	requireMissing(t, s, "k1")
	requireMissing(t, s, "k2")
}

func testBatchGet(t *testing.T, s store.Store[string, string]) {
	defer s.Close()
	ctx := context.Background()

	if err := s.Set(ctx, "k1", "v1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	values, errs, err := s.BatchGet(ctx, []string{"k1", "missing"})
	if err != nil {
		t.Fatalf("BatchGet failed: %v", err)
	}
	if len(values) != 2 || len(errs) != 2 {
		t.Fatalf("Expected 2 values and 2 errors, got %d and %d", len(values), len(errs))
	}
	if values[0] != "v1" || errs[0] != nil {
		t.Errorf("Expected (v1, nil) at 0, got (%q, %v)", values[0], errs[0])
	}
	if values[1] != "" || !errors.Is(errs[1], store.ErrKeyNotFound) {
		t.Errorf("Expected (zero, KeyNotFound) at 1, got (%q, %v)", values[1], errs[1])
	}

	// empty input gives empty, aligned output
	values, errs, err = s.BatchGet(ctx, nil)
	if err != nil || len(values) != 0 || len(errs) != 0 {
		t.Errorf("Expected empty result for empty input, got %v %v %v", values, errs, err)
	}
}

func testBatchDelete(t *testing.T, s store.Store[string, string]) {
	defer s.Close()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := s.Set(ctx, fmt.Sprintf("key-%d", i), "v"); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	keys := []string{"key-0", "key-2", "absent", "key-4"}
	errs, err := s.BatchDelete(ctx, keys)
	if err != nil {
		t.Fatalf("BatchDelete failed: %v", err)
	}
	if len(errs) != len(keys) {
		t.Fatalf("Expected %d results, got %d", len(keys), len(errs))
	}
	for i, e := range errs {
		if e != nil {
			t.Errorf("Expected delete of %s to succeed, got %v", keys[i], e)
		}
	}

	requireMissing(t, s, "key-0")
	requireMissing(t, s, "key-2")
	requireMissing(t, s, "key-4")
	requireValue(t, s, "key-1", "v")
	requireValue(t, s, "key-3", "v")
}

func testCloseKeepsData(t *testing.T, s store.Store[string, string]) {
	if r, ok := s.(Remote); ok && r.Remote() {
		_ = s.Close()
		t.Skip("data of remote stores outlives the client")
	}
	ctx := context.Background()

	if err := s.Set(ctx, "persist", "value"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}

	requireValue(t, s, "persist", "value")
}

func testEdgeCases(t *testing.T, s store.Store[string, string]) {
	defer s.Close()
	ctx := context.Background()

	// empty key and empty value are ordinary entries
	if err := s.Set(ctx, "", ""); err != nil {
		t.Errorf("Set with empty key failed: %v", err)
	}
	requireValue(t, s, "", "")

	// unicode keys
	key := "ключ-キー-🔑"
	if err := s.Set(ctx, key, "unicode"); err != nil {
		t.Errorf("Set with unicode key failed: %v", err)
	}
	requireValue(t, s, key, "unicode")

	// many keys survive
	for i := 0; i < 1000; i++ {
		if err := s.Set(ctx, fmt.Sprintf("many-%d", i), fmt.Sprintf("%d", i)); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	for i := 0; i < 1000; i += 97 {
		requireValue(t, s, fmt.Sprintf("many-%d", i), fmt.Sprintf("%d", i))
	}
}

func testConcurrentAccess(t *testing.T, s store.Store[string, string]) {
	defer s.Close()
	requireConcurrency(t, s)
	ctx := context.Background()

	const (
		workers = 8
		perKey  = 200
	)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perKey; i++ {
				key := fmt.Sprintf("w%d-k%d", w, i%20)
				if err := s.Set(ctx, key, fmt.Sprintf("%d", i)); err != nil {
					t.Errorf("Set failed: %v", err)
					return
				}
				if _, err := s.Get(ctx, key); err != nil {
					t.Errorf("Get after Set failed: %v", err)
					return
				}
				if i%10 == 0 {
					_ = s.Delete(ctx, key)
				}
			}
		}(w)
	}
	wg.Wait()
}

func testConcurrentIfNotExist(t *testing.T, s store.Store[string, string]) {
	defer s.Close()
	requireConcurrency(t, s)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			err := s.Set(ctx, "contended", fmt.Sprintf("owner-%d", w), store.IfNotExist())
			if err == nil {
				winners.Add(1)
			} else if !errors.Is(err, store.ErrConditionFailed) {
				t.Errorf("Unexpected error: %v", err)
			}
		}(w)
	}
	wg.Wait()

	if winners.Load() != 1 {
		t.Errorf("Expected exactly one conditional write to succeed, got %d", winners.Load())
	}
}
