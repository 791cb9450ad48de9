package malloc

import "testing"
import "unsafe"

import "github.com/stretchr/testify/require"

var testpoolmakers = map[string]poolmaker{
	"flist": newpoolflist,
	"fbit":  newpoolfbit,
}

func TestPoolAllocFree(t *testing.T) {
	for name, maker := range testpoolmakers {
		t.Run(name, func(t *testing.T) {
			block := make([]byte, 4096+Alignment)
			base := alignedbase(block)
			bk := &bookkeeper{}
			pool, ok := maker(96, base, 4096, bk)
			require.True(t, ok)
			require.Equal(t, int64(96), pool.chunksize())
			require.Equal(t, (4096/96)*int64(96), pool.capacity())
			require.Greater(t, bk.inuse, int64(0))

			seen := map[uintptr]bool{}
			ptrs := []unsafe.Pointer{}
			for {
				ptr, ok := pool.allocchunk()
				if !ok {
					break
				}
				require.False(t, seen[uintptr(ptr)])
				seen[uintptr(ptr)] = true
				ptrs = append(ptrs, ptr)
			}
			require.Equal(t, int64(4096/96), int64(len(ptrs)))
			require.Equal(t, pool.capacity(), pool.allocated())

			for _, ptr := range ptrs {
				pool.free(ptr)
			}
			require.Equal(t, int64(0), pool.allocated())
			require.Panics(t, func() { pool.free(unsafe.Add(base, 1)) })

			pool.release(bk)
			require.Equal(t, int64(0), bk.inuse)
		})
	}
}

func TestPoolDoubleFree(t *testing.T) {
	for name, maker := range testpoolmakers {
		t.Run(name, func(t *testing.T) {
			block := make([]byte, 4096+Alignment)
			pool, ok := maker(64, alignedbase(block), 4096, &bookkeeper{})
			require.True(t, ok)
			ptr, ok := pool.allocchunk()
			require.True(t, ok)
			pool.free(ptr)
			require.Panics(t, func() { pool.free(ptr) })
		})
	}
}

func TestPoolDoubleFreeLive(t *testing.T) {
	for name, maker := range testpoolmakers {
		t.Run(name, func(t *testing.T) {
			block := make([]byte, 4096+Alignment)
			pool, ok := maker(64, alignedbase(block), 4096, &bookkeeper{})
			require.True(t, ok)
			a, _ := pool.allocchunk()
			b, _ := pool.allocchunk()
			pool.free(a)
			require.Panics(t, func() { pool.free(a) })
			require.Equal(t, int64(64), pool.allocated())

			// free list is intact, no chunk is handed out twice.
			x, _ := pool.allocchunk()
			y, _ := pool.allocchunk()
			require.NotEqual(t, x, y)
			require.NotEqual(t, b, x)
			require.NotEqual(t, b, y)
		})
	}
}

func TestPoolFreeOutside(t *testing.T) {
	for name, maker := range testpoolmakers {
		t.Run(name, func(t *testing.T) {
			block := make([]byte, 2*4096+Alignment)
			base := unsafe.Add(alignedbase(block), 128)
			pool, ok := maker(96, base, 4096, &bookkeeper{})
			require.True(t, ok)
			_, ok = pool.allocchunk()
			require.True(t, ok)

			// 42 chunks of 96 bytes, the tail of the span is not a chunk.
			tail := unsafe.Add(base, 42*96)
			require.Panics(t, func() { pool.free(tail) })
			require.Panics(t, func() { pool.free(unsafe.Add(base, -96)) })
			require.Panics(t, func() { pool.free(unsafe.Add(base, 4096)) })
			require.Equal(t, int64(96), pool.allocated())
		})
	}
}

func alignedbase(block []byte) unsafe.Pointer {
	addr := uintptr(unsafe.Pointer(&block[0]))
	adjust := (Alignment - int64(addr%uintptr(Alignment))) % Alignment
	return unsafe.Pointer(&block[adjust])
}
