package sstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/ValentinKolb/kvkit/lib/store"
	storetesting "github.com/ValentinKolb/kvkit/lib/store/testing"
)

func TestShardedStore(t *testing.T) {
	storetesting.RunStoreTests(t, "ShardedStore", func() store.Store[string, string] {
		return NewStore[string, string](nil)
	})
	storetesting.RunStoreTests(t, "ShardedStore(1 shard)", func() store.Store[string, string] {
		return NewStore[string, string](&Options{NumShards: 1})
	})
	storetesting.RunStoreTests(t, "ShardedStore(64 shards)", func() store.Store[string, string] {
		return NewStore[string, string](&Options{NumShards: 64})
	})
}

func TestShardAssignmentIsStable(t *testing.T) {
	s := NewStore[string, int](&Options{NumShards: 16})
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("key-%d", i)
		first := s.shardFor(key)
		for j := 0; j < 10; j++ {
			if s.shardFor(key) != first {
				t.Fatalf("Key %s moved between shards", key)
			}
		}
	}
}

func TestNonStringKeys(t *testing.T) {
	type point struct{ X, Y int }
	s := NewStore[point, string](&Options{NumShards: 8})
	ctx := context.Background()

	if err := s.Set(ctx, point{1, 2}, "a"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value, err := s.Get(ctx, point{1, 2})
	if err != nil || value != "a" {
		t.Errorf("Expected a, got %q (%v)", value, err)
	}
}

func TestStats(t *testing.T) {
	s := NewStore[int, int](&Options{NumShards: 8})
	ctx := context.Background()
	for i := 0; i < 8000; i++ {
		_ = s.Set(ctx, i, i)
	}

	stats := s.Stats()
	if stats.NumShards != 8 || len(stats.ShardSizes) != 8 {
		t.Errorf("Expected 8 shards, got %d", stats.NumShards)
	}
	if stats.Keys != 8000 {
		t.Errorf("Expected 8000 keys, got %d", stats.Keys)
	}
	if stats.ShardDistribution.DistributionQuality < 0.5 {
		t.Errorf("Expected reasonable spread, got quality %f", stats.ShardDistribution.DistributionQuality)
	}
}

func TestZeroShardsFallsBackToCPUCount(t *testing.T) {
	s := NewStore[string, string](&Options{NumShards: 0})
	if len(s.shards) == 0 {
		t.Errorf("Expected at least one shard")
	}
}

func BenchmarkShardedStore(b *testing.B) {
	storetesting.RunStoreBenchmarks(b, "ShardedStore", func() store.Store[string, string] {
		return NewStore[string, string](nil)
	})
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
