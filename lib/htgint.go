package lib

import "math/bits"
import "strconv"

// HistogramInt64 bucket samples by the next power of 2, meant for byte
// sizes where the interesting spread is logarithmic. Sample `s` is
// counted against bucket `2^n` such that 2^(n-1) < s <= 2^n.
type HistogramInt64 struct {
	n       int64
	minval  int64
	maxval  int64
	sum     int64
	init    bool
	buckets [64]int64
}

// NewhistogramInt64 return a new histogram object.
func NewhistogramInt64() *HistogramInt64 {
	return &HistogramInt64{}
}

// Add a sample to this histogram, negative samples are counted as zero.
func (h *HistogramInt64) Add(sample int64) {
	if sample < 0 {
		sample = 0
	}
	h.n++
	h.sum += sample
	if h.init == false || sample < h.minval {
		h.minval = sample
		h.init = true
	}
	if h.maxval < sample {
		h.maxval = sample
	}
	if sample > 0 {
		h.buckets[bits.Len64(uint64(sample-1))]++
	} else {
		h.buckets[0]++
	}
}

// Min return minimum value from sample.
func (h *HistogramInt64) Min() int64 {
	return h.minval
}

// Max return maximum value from sample.
func (h *HistogramInt64) Max() int64 {
	return h.maxval
}

// Samples return total number of samples in the set.
func (h *HistogramInt64) Samples() int64 {
	return h.n
}

// Sum return the sum of all sample values.
func (h *HistogramInt64) Sum() int64 {
	return h.sum
}

// Mean return the average value of all samples.
func (h *HistogramInt64) Mean() int64 {
	if h.n == 0 {
		return 0
	}
	return int64(float64(h.sum) / float64(h.n))
}

// Clone copies the entire instance.
func (h *HistogramInt64) Clone() *HistogramInt64 {
	newh := *h
	return &newh
}

// Stats return sample count for every non-empty bucket, keyed by the
// bucket's upper bound.
func (h *HistogramInt64) Stats() map[string]int64 {
	m := make(map[string]int64)
	for i, count := range h.buckets {
		if count == 0 {
			continue
		}
		m[strconv.FormatUint(uint64(1)<<uint(i), 10)] = count
	}
	return m
}

// Fullstats includes samples, min, max and mean along with Stats().
func (h *HistogramInt64) Fullstats() map[string]interface{} {
	return map[string]interface{}{
		"samples":   h.Samples(),
		"min":       h.Min(),
		"max":       h.Max(),
		"mean":      h.Mean(),
		"histogram": h.Stats(),
	}
}
