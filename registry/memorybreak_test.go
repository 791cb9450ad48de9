package registry

import "testing"
import "unsafe"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

func TestMemoryBreakReset(t *testing.T) {
	mgr := New(4)
	for _, slot := range []int{0, 5, 31} {
		mb := NewMemoryBreak()
		mb.Size = int64(slot + 1)
		mgr.SetMemoryBreak(slot, mb)
		assert.True(t, mgr.IsMemoryBreakActive(slot))
	}
	assert.False(t, mgr.IsMemoryBreakActive(1))

	mgr.ResetMemoryBreak(5)
	assert.False(t, mgr.IsMemoryBreakActive(5))
	assert.True(t, mgr.IsMemoryBreakActive(0))

	mgr.ResetMemoryBreak(Allbreaks)
	for slot := 0; slot < Maxmemorybreaks; slot++ {
		assert.False(t, mgr.IsMemoryBreakActive(slot), "slot %v", slot)
		_, active := mgr.MemoryBreakAt(slot)
		assert.False(t, active)
	}
	assert.Equal(t, int64(0), mgr.Stats()["n_breaks"])
}

func TestMemoryBreakInvalidSlot(t *testing.T) {
	mgr := New(4)
	require.Panics(t, func() { mgr.SetMemoryBreak(Maxmemorybreaks, NewMemoryBreak()) })
	require.Panics(t, func() { mgr.SetMemoryBreak(-1, NewMemoryBreak()) })
	require.Panics(t, func() { mgr.ResetMemoryBreak(Maxmemorybreaks) })
	require.Panics(t, func() { mgr.IsMemoryBreakActive(-2) })
}

func TestCheckMemoryBreak(t *testing.T) {
	type hit struct {
		slot int
		ptr  unsafe.Pointer
		size int64
	}
	var hits []hit

	mgr := New(4)
	mgr.SetBreakHandler(func(slot int, mb MemoryBreak, ptr unsafe.Pointer, size int64) {
		hits = append(hits, hit{slot, ptr, size})
	})

	block := make([]byte, 1024)
	base := unsafe.Pointer(&block[0])
	at := func(off int) unsafe.Pointer { return unsafe.Add(base, off) }

	// nothing watched.
	assert.Equal(t, -1, mgr.CheckMemoryBreak(at(0), 64, 16, "x", "a.go", 10))

	byaddr := NewMemoryBreak()
	byaddr.Start, byaddr.End = uintptr(at(512)), uintptr(at(576))
	mgr.SetMemoryBreak(3, byaddr)

	byname := NewMemoryBreak()
	byname.Name, byname.Size = "texture", 256
	mgr.SetMemoryBreak(7, byname)

	byline := NewMemoryBreak()
	byline.File, byline.Line = "loader.go", 42
	mgr.SetMemoryBreak(9, byline)

	assert.Equal(t, -1, mgr.CheckMemoryBreak(at(0), 64, 16, "x", "a.go", 10))
	assert.Equal(t, 3, mgr.CheckMemoryBreak(at(480), 64, 16, "x", "a.go", 10))
	assert.Equal(t, -1, mgr.CheckMemoryBreak(at(576), 64, 16, "x", "a.go", 10))
	assert.Equal(t, -1, mgr.CheckMemoryBreak(at(0), 128, 16, "texture", "a.go", 10))
	assert.Equal(t, 7, mgr.CheckMemoryBreak(at(0), 256, 16, "texture", "a.go", 10))
	assert.Equal(t, -1, mgr.CheckMemoryBreak(at(0), 32, 16, "y", "loader.go", 41))
	assert.Equal(t, 9, mgr.CheckMemoryBreak(at(0), 32, 16, "y", "loader.go", 42))

	require.Len(t, hits, 3)
	assert.Equal(t, hit{3, at(480), 64}, hits[0])
	assert.Equal(t, 7, hits[1].slot)
	assert.Equal(t, 9, hits[2].slot)

	// an empty descriptor never matches.
	mgr.ResetMemoryBreak(Allbreaks)
	mgr.SetMemoryBreak(0, NewMemoryBreak())
	assert.Equal(t, -1, mgr.CheckMemoryBreak(at(0), 32, 16, "y", "loader.go", 42))
}
