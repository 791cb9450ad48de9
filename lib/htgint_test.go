package lib

import "testing"
import "reflect"

func TestHistogramInt(t *testing.T) {
	h := NewhistogramInt64()
	for i := 1; i <= 100; i++ {
		h.Add(int64(i))
	}

	if x, y := int64(1), h.Min(); x != y {
		t.Errorf("Min() expected %v, got %v", x, y)
	} else if x, y := int64(100), h.Max(); x != y {
		t.Errorf("Max() expected %v, got %v", x, y)
	} else if x, y := int64(100), h.Samples(); x != y {
		t.Errorf("Samples() expected %v, got %v", x, y)
	} else if x, y := int64(100*101)/2, h.Sum(); x != y {
		t.Errorf("Sum() expected %v, got %v", x, y)
	} else if x, y := int64(50), h.Mean(); x != y {
		t.Errorf("Mean() expected %v, got %v", x, y)
	}

	ref := map[string]int64{
		"1": 1, "2": 1, "4": 2, "8": 4, "16": 8, "32": 16, "64": 32, "128": 36,
	}
	if data := h.Stats(); !reflect.DeepEqual(ref, data) {
		t.Errorf("expected %v, got %v", ref, data)
	}

	clone := h.Clone()
	h.Add(1000)
	if x := clone.Samples(); x != 100 {
		t.Errorf("expected %v, got %v", 100, x)
	} else if x := h.Fullstats()["max"].(int64); x != 1000 {
		t.Errorf("expected %v, got %v", 1000, x)
	}
}

func TestHistogramZero(t *testing.T) {
	h := NewhistogramInt64()
	if x := h.Mean(); x != 0 {
		t.Errorf("expected %v, got %v", 0, x)
	}
	h.Add(0)
	h.Add(-10)
	ref := map[string]int64{"1": 2}
	if data := h.Stats(); !reflect.DeepEqual(ref, data) {
		t.Errorf("expected %v, got %v", ref, data)
	}
}

func BenchmarkHtgintAdd(b *testing.B) {
	htg := NewhistogramInt64()
	for i := 0; i < b.N; i++ {
		htg.Add(int64(i))
	}
}
