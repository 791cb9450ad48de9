package malloc

import "unsafe"

import "github.com/bnclabs/goalloc/api"
import "github.com/bnclabs/goalloc/lib"

// pagesource supplies runs of pages to an arena. Every run is aligned
// on Alignment.
type pagesource interface {
	// acquire npages contiguous pages, return false if the source is
	// exhausted.
	acquire(npages int64) (unsafe.Pointer, bool)

	// release a run of pages obtained by acquire.
	release(base unsafe.Pointer, npages int64)

	// collect return cached pages to the provider, return bytes
	// given back.
	collect() int64

	// footprint bytes currently held from the provider.
	footprint() int64

	// limit maximum bytes that can be held from the provider.
	limit() int64

	close()
}

type pagerun struct {
	first int64
	count int64
}

// blockpages carves pages out of a single pre-reserved memory block,
// free runs are kept sorted and coalesced, allocation is first fit.
type blockpages struct {
	block    []byte
	base     unsafe.Pointer
	pagesize int64
	npages   int64
	freeruns []pagerun
}

func newblockpages(block []byte, pagesize int64) (*blockpages, error) {
	if len(block) == 0 {
		return nil, ErrorInvalidBlock
	}
	addr := int64(uintptr(unsafe.Pointer(&block[0])))
	adjust := lib.Alignup(addr, Alignment) - addr
	npages := (int64(len(block)) - adjust) / pagesize
	if npages < 1 {
		return nil, ErrorInvalidBlock
	}
	pages := &blockpages{
		block:    block,
		base:     unsafe.Pointer(&block[adjust]),
		pagesize: pagesize,
		npages:   npages,
		freeruns: []pagerun{{first: 0, count: npages}},
	}
	return pages, nil
}

func (pages *blockpages) acquire(npages int64) (unsafe.Pointer, bool) {
	for i, run := range pages.freeruns {
		if run.count < npages {
			continue
		} else if run.count == npages {
			copy(pages.freeruns[i:], pages.freeruns[i+1:])
			pages.freeruns = pages.freeruns[:len(pages.freeruns)-1]
		} else {
			pages.freeruns[i] = pagerun{run.first + npages, run.count - npages}
		}
		return unsafe.Add(pages.base, run.first*pages.pagesize), true
	}
	return nil, false
}

func (pages *blockpages) release(base unsafe.Pointer, npages int64) {
	diff := int64(uintptr(base) - uintptr(pages.base))
	if diff < 0 || (diff%pages.pagesize) != 0 {
		panicerr("release %p is not a page in memory block", base)
	}
	first := diff / pages.pagesize
	if first+npages > pages.npages {
		panicerr("release %p, %v pages outside memory block", base, npages)
	}

	i := 0
	for ; i < len(pages.freeruns) && pages.freeruns[i].first < first; i++ {
	}
	runs := pages.freeruns
	if i > 0 && runs[i-1].first+runs[i-1].count > first {
		panicerr("release %p, pages already free", base)
	} else if i < len(runs) && first+npages > runs[i].first {
		panicerr("release %p, pages already free", base)
	}

	mergeprev := i > 0 && runs[i-1].first+runs[i-1].count == first
	mergenext := i < len(runs) && first+npages == runs[i].first
	switch {
	case mergeprev && mergenext:
		runs[i-1].count += npages + runs[i].count
		pages.freeruns = append(runs[:i], runs[i+1:]...)
	case mergeprev:
		runs[i-1].count += npages
	case mergenext:
		runs[i] = pagerun{first, npages + runs[i].count}
	default:
		runs = append(runs, pagerun{})
		copy(runs[i+1:], runs[i:])
		runs[i] = pagerun{first, npages}
		pages.freeruns = runs
	}
}

func (pages *blockpages) collect() int64 {
	return 0
}

func (pages *blockpages) footprint() int64 {
	return pages.npages * pages.pagesize
}

func (pages *blockpages) limit() int64 {
	return pages.npages * pages.pagesize
}

func (pages *blockpages) close() {
	pages.block, pages.base, pages.freeruns = nil, nil, nil
}

type cachedrun struct {
	ptr    unsafe.Pointer
	npages int64
}

// ospages maps pages from the raw provider. Released runs are cached
// and only handed back to the provider on collect.
type ospages struct {
	provider api.Allocator
	pagesize int64
	capacity int64
	held     int64
	cache    []cachedrun
}

func newospages(provider api.Allocator, pagesize, capacity int64) *ospages {
	return &ospages{provider: provider, pagesize: pagesize, capacity: capacity}
}

func (pages *ospages) acquire(npages int64) (unsafe.Pointer, bool) {
	for i, run := range pages.cache {
		if run.npages == npages {
			copy(pages.cache[i:], pages.cache[i+1:])
			pages.cache = pages.cache[:len(pages.cache)-1]
			return run.ptr, true
		}
	}
	size := npages * pages.pagesize
	if pages.held+size > pages.capacity {
		return nil, false
	}
	ptr := pages.provider.Allocate(
		size, Alignment, api.Nullflags, "malloc.pages", "", 0, 1)
	if ptr == nil {
		return nil, false
	}
	pages.held += size
	return ptr, true
}

func (pages *ospages) release(base unsafe.Pointer, npages int64) {
	pages.cache = append(pages.cache, cachedrun{ptr: base, npages: npages})
}

func (pages *ospages) collect() int64 {
	reclaimed := int64(0)
	for _, run := range pages.cache {
		size := run.npages * pages.pagesize
		pages.provider.DeAllocate(run.ptr, size, Alignment)
		pages.held -= size
		reclaimed += size
	}
	pages.cache = pages.cache[:0]
	return reclaimed
}

func (pages *ospages) footprint() int64 {
	return pages.held
}

func (pages *ospages) limit() int64 {
	return pages.capacity
}

func (pages *ospages) close() {
	pages.collect()
	pages.cache = nil
}
