package util

import (
	"testing"
)

func TestHashStringSeeded(t *testing.T) {
	if HashString("key", 1) == HashString("key", 2) {
		t.Errorf("Expected different seeds to give different hashes")
	}
	if HashString("key", 1) != HashString("key", 1) {
		t.Errorf("Expected hash to be stable")
	}
}

func TestKeyHasherStable(t *testing.T) {
	strHasher := NewKeyHasher[string](GenerateSeed())
	if strHasher("a") != strHasher("a") {
		t.Errorf("Expected string hasher to be stable")
	}

	type compound struct {
		A int
		B string
	}
	hasher := NewKeyHasher[compound](GenerateSeed())
	if hasher(compound{1, "x"}) != hasher(compound{1, "x"}) {
		t.Errorf("Expected struct hasher to be stable")
	}
}

func TestShardIndexInRange(t *testing.T) {
	hasher := NewKeyHasher[int](GenerateSeed())
	for i := 0; i < 10_000; i++ {
		idx := ShardIndex(hasher(i), 7)
		if idx < 0 || idx >= 7 {
			t.Fatalf("Shard index %d out of range", idx)
		}
	}
}

func TestDistributionStats(t *testing.T) {
	even := NewDistributionStats([]int{10, 10, 10, 10})
	if even.DistributionQuality != 1 {
		t.Errorf("Expected perfect quality for even spread, got %f", even.DistributionQuality)
	}

	skewed := NewDistributionStats([]int{40, 0, 0, 0})
	if skewed.DistributionQuality >= even.DistributionQuality {
		t.Errorf("Expected skewed spread to rate lower, got %f", skewed.DistributionQuality)
	}

	if empty := NewDistributionStats([]int{}); empty.Mean != 0 {
		t.Errorf("Expected zero stats for no shards")
	}
}

func TestSizeHistogram(t *testing.T) {
	h := NewSizeHistogram()
	if h.Percentile(50) != 0 || h.Average() != 0 {
		t.Errorf("Expected empty histogram to report zero")
	}

	for i := 0; i < 100; i++ {
		h.AddSample(10)
	}
	h.AddSample(10 << 20)

	if h.Count() != 101 {
		t.Errorf("Expected 101 samples, got %d", h.Count())
	}
	if p := h.Percentile(50); p != 8 {
		t.Errorf("Expected median estimate 8, got %d", p)
	}
	if p := h.Percentile(100); p != 4194304*2 {
		t.Errorf("Expected max estimate from overflow bucket, got %d", p)
	}

	h.Reset()
	if h.Count() != 0 {
		t.Errorf("Expected reset histogram to be empty")
	}
}
