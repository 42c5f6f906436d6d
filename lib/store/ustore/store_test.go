package ustore

import (
	"context"
	"fmt"
	"testing"

	"github.com/ValentinKolb/kvkit/lib/store"
	storetesting "github.com/ValentinKolb/kvkit/lib/store/testing"
)

func factory() store.Store[string, string] {
	return NewStore[string, string](nil)
}

func TestUnsafeStore(t *testing.T) {
	storetesting.RunStoreTests(t, "UnsafeStore", factory)
}

func TestSlotReuse(t *testing.T) {
	s := NewStore[string, string](&Options{Capacity: 4})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_ = s.Set(ctx, fmt.Sprintf("k%d", i), "v")
	}
	_ = s.Delete(ctx, "k1")
	_ = s.Delete(ctx, "k2")
	if s.Len() != 2 || s.Slots() != 4 {
		t.Fatalf("Expected 2 live entries in 4 slots, got %d in %d", s.Len(), s.Slots())
	}

	_ = s.Set(ctx, "k4", "new")
	_ = s.Set(ctx, "k5", "new")
	if s.Slots() != 4 {
		t.Errorf("Expected freed slots to be reused, arena grew to %d", s.Slots())
	}

	for _, key := range []string{"k0", "k3", "k4", "k5"} {
		if _, err := s.Get(ctx, key); err != nil {
			t.Errorf("Expected %s to be present, got %v", key, err)
		}
	}
}

func TestOverwriteKeepsSlot(t *testing.T) {
	s := NewStore[int, int](nil)
	ctx := context.Background()
	_ = s.Set(ctx, 1, 1)
	_ = s.Set(ctx, 1, 2)
	if s.Slots() != 1 {
		t.Errorf("Expected overwrite to keep one slot, got %d", s.Slots())
	}
	if v, _ := s.Get(ctx, 1); v != 2 {
		t.Errorf("Expected 2, got %d", v)
	}
}

func TestSingleWriterMarker(t *testing.T) {
	var s store.Store[string, string] = NewStore[string, string](nil)
	sw, ok := s.(storetesting.SingleWriter)
	if !ok || !sw.SingleWriter() {
		t.Errorf("Expected unsafe store to report single writer")
	}
}

func BenchmarkUnsafeStore(b *testing.B) {
	storetesting.RunStoreBenchmarks(b, "UnsafeStore", factory)
}

func TestCloseKeepsData(t *testing.T) {
	s := NewStore[string, string](nil)
	ctx := context.Background()
	_ = s.Set(ctx, "a", "1")
	if s.Closed() {
		t.Errorf("Expected store to be open")
	}
	_ = s.Close()
	_ = s.Close()
	if !s.Closed() {
		t.Errorf("Expected store to be closed")
	}
	if v, err := s.Get(ctx, "a"); err != nil || v != "1" {
		t.Errorf("Expected Close to keep data, got %q, %v", v, err)
	}
}
