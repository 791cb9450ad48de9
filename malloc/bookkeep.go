package malloc

import "unsafe"

import "github.com/bnclabs/goalloc/api"
import "github.com/bnclabs/goalloc/lib"

// bookkeeper supplies memory for free lists and bitmaps. If a
// suballocator is configured memory is taken from it, otherwise from
// the Go heap.
type bookkeeper struct {
	sub   api.Allocator
	inuse int64
}

func (bk *bookkeeper) alloc(n int64) ([]byte, bool) {
	if n <= 0 {
		return nil, true
	}
	n = lib.Alignup(n, 8) // free lists and bitmaps are read as words.
	if bk.sub == nil {
		bk.inuse += n
		return make([]byte, n), true
	}
	ptr := bk.sub.Allocate(
		n, api.Defaultalign, api.Nullflags, "malloc.bookkeeping", "", 0, 1)
	if ptr == nil {
		return nil, false
	}
	mem := unsafe.Slice((*byte)(ptr), n)
	clear(mem)
	bk.inuse += n
	return mem, true
}

func (bk *bookkeeper) free(mem []byte) {
	if len(mem) == 0 {
		return
	}
	bk.inuse -= int64(len(mem))
	if bk.sub != nil {
		ptr := unsafe.Pointer(&mem[0])
		bk.sub.DeAllocate(ptr, int64(len(mem)), api.Defaultalign)
	}
}
