package malloc

import "sort"
import "unsafe"

// span is a run of pages owned by the arena, either a pool or a single
// large allocation.
type span struct {
	base   unsafe.Pointer
	npages int64
	pool   mpooler
	offset int64 // from base, for large allocations.
}

// spanindex sorted on base address.
type spanindex []*span

func (idx *spanindex) insert(sp *span) {
	spans := *idx
	i := sort.Search(len(spans), func(i int) bool {
		return uintptr(spans[i].base) > uintptr(sp.base)
	})
	spans = append(spans, nil)
	copy(spans[i+1:], spans[i:])
	spans[i] = sp
	*idx = spans
}

func (idx *spanindex) remove(sp *span) {
	spans := *idx
	for i, x := range spans {
		if x == sp {
			copy(spans[i:], spans[i+1:])
			spans[len(spans)-1] = nil
			*idx = spans[:len(spans)-1]
			return
		}
	}
	panicerr("span %p not indexed", sp.base)
}

// lookup span containing ptr.
func (idx spanindex) lookup(ptr unsafe.Pointer, pagesize int64) *span {
	addr := uintptr(ptr)
	i := sort.Search(len(idx), func(i int) bool {
		return uintptr(idx[i].base) > addr
	})
	if i == 0 {
		return nil
	}
	sp := idx[i-1]
	if addr < uintptr(sp.base)+uintptr(sp.npages*pagesize) {
		return sp
	}
	return nil
}
