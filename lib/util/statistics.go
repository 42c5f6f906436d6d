package util

import (
	"math"
	"sync/atomic"
)

// ----------------------------------------------------------------------------
// Distribution statistics
// ----------------------------------------------------------------------------

type Stats struct {
	StdDeviation float64 `json:"std_deviation"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Mean         float64 `json:"mean"`
	MinMaxRatio  float64 `json:"min_max_ratio"`
}

// NewStats computes mean, standard deviation, minimum and maximum of values.
func NewStats(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}

	minV, maxV := values[0], values[0]
	var sum float64
	for _, v := range values {
		sum += v
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}
	mean := sum / float64(len(values))

	var sumSquaredDiffs float64
	for _, v := range values {
		diff := v - mean
		sumSquaredDiffs += diff * diff
	}

	ratio := 1.0
	if maxV > 0 {
		ratio = minV / maxV
	}

	return Stats{
		StdDeviation: math.Sqrt(sumSquaredDiffs / float64(len(values))), // population formula
		Min:          minV,
		Max:          maxV,
		Mean:         mean,
		MinMaxRatio:  ratio,
	}
}

type DistributionStats struct {
	Stats
	DistributionQuality float64 `json:"distribution_quality"`
}

// NewDistributionStats rates how evenly keys are spread over shards.
// A quality of 1 means every shard holds the same number of keys.
func NewDistributionStats[N int | int64 | float64](shardSizes []N) DistributionStats {
	values := make([]float64, len(shardSizes))
	for i, size := range shardSizes {
		values[i] = float64(size)
	}
	stats := NewStats(values)

	var cv float64
	if stats.Mean > 0 {
		cv = stats.StdDeviation / stats.Mean
	}

	// lower coefficient of variation and higher min/max ratio mean better spread
	return DistributionStats{
		Stats:               stats,
		DistributionQuality: (1.0-math.Min(1.0, cv))*0.5 + stats.MinMaxRatio*0.5,
	}
}

// ----------------------------------------------------------------------------
// SizeHistogram
// ----------------------------------------------------------------------------

// sizeBoundaries are exponential bucket limits from 16B up to 4MB, the largest
// record the line scanner accepts by default. Larger samples land in the last bucket.
var sizeBoundaries = [...]int{16, 64, 256, 1024, 4096, 16384, 65536, 262144, 1048576, 4194304}

// SizeHistogram tracks the distribution of record sizes.
//
// Thread-safe: all methods use atomic counters and may be called concurrently.
type SizeHistogram struct {
	buckets [len(sizeBoundaries) + 1]atomic.Int64
	count   atomic.Int64
	sum     atomic.Int64
}

// NewSizeHistogram creates an empty histogram
func NewSizeHistogram() *SizeHistogram {
	return &SizeHistogram{}
}

// AddSample records one size.
func (h *SizeHistogram) AddSample(size int) {
	idx := len(sizeBoundaries)
	for i, boundary := range sizeBoundaries {
		if size <= boundary {
			idx = i
			break
		}
	}
	h.buckets[idx].Add(1)
	h.count.Add(1)
	h.sum.Add(int64(size))
}

// Count returns the number of samples.
func (h *SizeHistogram) Count() int64 {
	return h.count.Load()
}

// Average returns the mean size across all samples.
func (h *SizeHistogram) Average() int {
	count := h.count.Load()
	if count == 0 {
		return 0
	}
	return int(h.sum.Load() / count)
}

// Percentile estimates the given percentile (0-100) from the bucket midpoints.
func (h *SizeHistogram) Percentile(percentile int) int {
	count := h.count.Load()
	if count == 0 || percentile < 0 || percentile > 100 {
		return 0
	}

	target := int64(math.Ceil(float64(count) * float64(percentile) / 100.0))
	var cumulative int64
	for i := range h.buckets {
		cumulative += h.buckets[i].Load()
		if cumulative < target {
			continue
		}
		switch {
		case i == 0:
			return sizeBoundaries[0] / 2
		case i < len(sizeBoundaries):
			return (sizeBoundaries[i-1] + sizeBoundaries[i]) / 2
		default:
			return sizeBoundaries[len(sizeBoundaries)-1] * 2
		}
	}
	return h.Average()
}

// Reset clears all samples.
func (h *SizeHistogram) Reset() {
	for i := range h.buckets {
		h.buckets[i].Store(0)
	}
	h.count.Store(0)
	h.sum.Store(0)
}
