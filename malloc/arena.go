package malloc

import "fmt"
import "sync"
import "sync/atomic"
import "unsafe"

import "github.com/bnclabs/goalloc/api"
import "github.com/bnclabs/goalloc/lib"
import "github.com/bnclabs/goalloc/osalloc"
import humanize "github.com/dustin/go-humanize"

// Arena heap schema, manages pages obtained from a page source and
// divides them into pools and large spans.
type Arena struct {
	mu        sync.Mutex
	n_gcskips int64 // atomic

	slabs     []int64 // sorted list of pooled chunk sizes
	pools     map[int64][]mpooler
	poolmaker poolmaker
	pages     pagesource
	spans     spanindex
	bk        bookkeeper
	ready     bool
	logprefix string

	// configuration
	pagesize     int64
	poolpagesize int64
	capacity     int64
	minblock     int64
	maxblock     int64
	pooling      bool
	allocator    string

	// statistics
	n_allocs    int64
	n_frees     int64
	n_fails     int64
	n_gcs       int64
	n_poolfrees int64
	mallocated  int64
	reclaimed   int64
	h_allocsz   *lib.HistogramInt64
	a_reclaim   *lib.AverageInt64 // bytes reclaimed per pass
}

// NewArena create a new heap schema on the Go heap.
func NewArena(desc Descriptor) (*Arena, error) {
	arena := &Arena{}
	if err := arena.Init(desc); err != nil {
		return nil, err
	}
	return arena, nil
}

// Init arena in place, arena should either be zero valued or
// released.
func (arena *Arena) Init(desc Descriptor) error {
	arena.mu.Lock()
	defer arena.mu.Unlock()

	if arena.ready {
		panicerr("arena already initialized")
	}

	if desc.Pagesize < Minpagesize || !lib.Ispow2(desc.Pagesize) {
		return ErrorInvalidPagesize
	}
	if desc.Pooling {
		if err := validblocksizes(desc.Minblock, desc.Maxblock); err != nil {
			return err
		}
		ok := lib.Ispow2(desc.Poolpagesize)
		if !ok || desc.Poolpagesize < desc.Maxblock {
			return ErrorInvalidPoolpage
		}
	}
	allocator := desc.Allocator
	if allocator == "" {
		allocator = Defaultpool
	}
	var maker poolmaker
	switch allocator {
	case "flist":
		maker = newpoolflist
	case "fbit":
		maker = newpoolfbit
	default:
		return ErrorUnknownPool
	}

	var pages pagesource
	if desc.Memoryblock != nil {
		bpages, err := newblockpages(desc.Memoryblock, desc.Pagesize)
		if err != nil {
			return err
		}
		pages = bpages
	} else {
		capacity := desc.Capacity
		if capacity == 0 {
			capacity = Maxarenasize
			if _, _, free := osalloc.Sysmem(); free > 0 {
				capacity = int64(free)
			}
		}
		if capacity > Maxarenasize {
			return ErrorInvalidCapacity
		}
		pages = newospages(osalloc.Ensure(), desc.Pagesize, capacity)
	}

	arena.slabs, arena.pools = nil, make(map[int64][]mpooler)
	if desc.Pooling {
		arena.slabs = Blocksizes(desc.Minblock, desc.Maxblock)
		if int64(len(arena.slabs)) > Maxpools {
			pages.close()
			return ErrorInvalidBlocksize
		}
	}
	arena.poolmaker, arena.pages, arena.spans = maker, pages, nil
	arena.bk = bookkeeper{sub: desc.Suballocator}
	arena.pagesize, arena.poolpagesize = desc.Pagesize, desc.Poolpagesize
	arena.capacity = pages.limit()
	arena.minblock, arena.maxblock = desc.Minblock, desc.Maxblock
	arena.pooling, arena.allocator = desc.Pooling, allocator
	arena.n_allocs, arena.n_frees, arena.n_fails = 0, 0, 0
	arena.n_gcs, arena.n_poolfrees = 0, 0
	atomic.StoreInt64(&arena.n_gcskips, 0)
	arena.mallocated, arena.reclaimed = 0, 0
	arena.h_allocsz = lib.NewhistogramInt64()
	arena.a_reclaim = &lib.AverageInt64{}
	arena.logprefix = fmt.Sprintf("ARENA [%p]", arena)
	arena.ready = true

	fmsg := "%v started with pagesize %v capacity %v pooling:%v %q\n"
	infof(fmsg, arena.logprefix, humanize.IBytes(uint64(arena.pagesize)),
		humanize.IBytes(uint64(arena.capacity)), arena.pooling, allocator)
	return nil
}

// Release all memory held by arena. After release, arena can be
// re-initialized with Init.
func (arena *Arena) Release() {
	arena.mu.Lock()
	defer arena.mu.Unlock()

	if !arena.ready {
		return
	}
	if arena.mallocated > 0 {
		fmsg := "%v released with %v still allocated\n"
		warnf(fmsg, arena.logprefix, humanize.IBytes(uint64(arena.mallocated)))
	}
	for _, sp := range arena.spans {
		if sp.pool != nil {
			sp.pool.release(&arena.bk)
		}
		arena.pages.release(sp.base, sp.npages)
	}
	arena.pages.close()
	arena.spans, arena.pools, arena.pages = nil, nil, nil
	arena.ready = false
	infof("%v released\n", arena.logprefix)
}

// IsReady return true if arena is initialized and not released.
func (arena *Arena) IsReady() bool {
	arena.mu.Lock()
	defer arena.mu.Unlock()
	return arena.ready
}

// Slabs return the sorted list of pooled chunk sizes.
func (arena *Arena) Slabs() []int64 {
	arena.mu.Lock()
	defer arena.mu.Unlock()
	return append([]int64(nil), arena.slabs...)
}

// Allocate size bytes aligned on align. Return nil if memory is
// exhausted.
func (arena *Arena) Allocate(
	size, align int64, flags int, name, file string,
	line, suppress int) unsafe.Pointer {

	if size <= 0 {
		panicerr("Allocate(): invalid size %v", size)
	} else if !lib.Ispow2(align) {
		panicerr("Allocate(): alignment %v not power of 2", align)
	}

	arena.mu.Lock()
	defer arena.mu.Unlock()

	if !arena.ready {
		panicerr("Allocate(): arena not initialized")
	}
	ptr, usable := arena.alloc(size, align)
	if ptr == nil {
		arena.n_fails++
		fmsg := "%v failed to allocate %v aligned %v (%q %v:%v)\n"
		debugf(fmsg, arena.logprefix, size, align, name, file, line)
		return nil
	}
	initblock(ptr, size)
	arena.n_allocs++
	arena.mallocated += usable
	arena.h_allocsz.Add(size)
	return ptr
}

func (arena *Arena) alloc(size, align int64) (unsafe.Pointer, int64) {
	if arena.pooling && align <= Sizeinterval && size <= arena.maxblock {
		return arena.allocpooled(size)
	}
	return arena.alloclarge(size, align)
}

func (arena *Arena) allocpooled(size int64) (unsafe.Pointer, int64) {
	slab := SuitableSize(arena.slabs, size)
	pools := arena.pools[slab]
	for i := len(pools) - 1; i >= 0; i-- {
		if ptr, ok := pools[i].allocchunk(); ok {
			return ptr, slab
		}
	}

	npages := lib.Ceil(arena.poolpagesize, arena.pagesize)
	base, ok := arena.pages.acquire(npages)
	if !ok {
		return nil, 0
	}
	pool, ok := arena.poolmaker(slab, base, npages*arena.pagesize, &arena.bk)
	if !ok {
		arena.pages.release(base, npages)
		return nil, 0
	}
	arena.pools[slab] = append(pools, pool)
	arena.spans.insert(&span{base: base, npages: npages, pool: pool})
	ptr, _ := pool.allocchunk()
	return ptr, slab
}

func (arena *Arena) alloclarge(size, align int64) (unsafe.Pointer, int64) {
	need := size
	if align > Alignment {
		need += align - Alignment
	}
	npages := lib.Ceil(need, arena.pagesize)
	base, ok := arena.pages.acquire(npages)
	if !ok {
		return nil, 0
	}
	addr := int64(uintptr(base))
	offset := lib.Alignup(addr, align) - addr
	sp := &span{base: base, npages: npages, offset: offset}
	arena.spans.insert(sp)
	return unsafe.Add(base, offset), npages*arena.pagesize - offset
}

// DeAllocate memory previously allocated from this arena, size if
// non-zero should not exceed the allocation size.
func (arena *Arena) DeAllocate(ptr unsafe.Pointer, size, align int64) {
	if ptr == nil {
		return
	}

	arena.mu.Lock()
	defer arena.mu.Unlock()

	sp := arena.spans.lookup(ptr, arena.pagesize)
	if sp == nil {
		panicerr("DeAllocate(): %p not allocated by %v", ptr, arena.logprefix)
	}
	if sp.pool != nil {
		if chunksize := sp.pool.chunksize(); size > chunksize {
			panicerr("DeAllocate(): size %v > chunk %v", size, chunksize)
		}
		sp.pool.free(ptr)
		arena.mallocated -= sp.pool.chunksize()

	} else {
		if unsafe.Add(sp.base, sp.offset) != ptr {
			panicerr("DeAllocate(): %p not an allocated address", ptr)
		}
		usable := sp.npages*arena.pagesize - sp.offset
		if size > usable {
			panicerr("DeAllocate(): size %v > allocated %v", size, usable)
		}
		arena.spans.remove(sp)
		arena.pages.release(sp.base, sp.npages)
		arena.mallocated -= usable
	}
	arena.n_frees++
}

// ReAllocate memory to size bytes. A nil ptr behaves like Allocate,
// zero size behaves like DeAllocate.
func (arena *Arena) ReAllocate(
	ptr unsafe.Pointer, size, align int64) unsafe.Pointer {

	if align <= 0 {
		align = api.Defaultalign
	}
	if ptr == nil {
		return arena.Allocate(size, align, api.Nullflags, "", "", 0, 1)
	} else if size == 0 {
		arena.DeAllocate(ptr, 0, 0)
		return nil
	}

	cursize := arena.AllocationSize(ptr)
	if size <= cursize && (uintptr(ptr)&uintptr(align-1)) == 0 {
		return ptr
	}
	newptr := arena.Allocate(size, align, api.Nullflags, "", "", 0, 1)
	if newptr == nil {
		return nil
	}
	n := cursize
	if size < n {
		n = size
	}
	lib.Memcpy(newptr, ptr, int(n))
	arena.DeAllocate(ptr, 0, 0)
	return newptr
}

// Resize in place, return the new usable size which is the allocation
// size if size exceeds it.
func (arena *Arena) Resize(ptr unsafe.Pointer, size int64) int64 {
	if cursize := arena.AllocationSize(ptr); size > cursize {
		return cursize
	}
	return size
}

// AllocationSize return usable size of ptr, zero if ptr is not an
// allocated address in this arena.
func (arena *Arena) AllocationSize(ptr unsafe.Pointer) int64 {
	if ptr == nil {
		return 0
	}

	arena.mu.Lock()
	defer arena.mu.Unlock()

	sp := arena.spans.lookup(ptr, arena.pagesize)
	if sp == nil {
		return 0
	} else if sp.pool != nil {
		return sp.pool.chunksize()
	} else if unsafe.Add(sp.base, sp.offset) != ptr {
		return 0
	}
	return sp.npages*arena.pagesize - sp.offset
}

// GarbageCollect release empty pools and hand cached pages back to
// their provider. An arena busy with another operation is skipped, use
// Collect to wait for the arena.
func (arena *Arena) GarbageCollect() {
	if !arena.mu.TryLock() {
		atomic.AddInt64(&arena.n_gcskips, 1)
		return
	}
	defer arena.mu.Unlock()
	arena.collect()
}

// Collect is GarbageCollect that waits for the arena's lock. Shall not
// be called while the calling goroutine is inside this arena.
func (arena *Arena) Collect() {
	arena.mu.Lock()
	defer arena.mu.Unlock()
	arena.collect()
}

func (arena *Arena) collect() {
	if !arena.ready {
		return
	}
	poolbytes := int64(0)
	for _, slab := range arena.slabs {
		pools, keep := arena.pools[slab], []mpooler(nil)
		for _, pool := range pools {
			if pool.allocated() > 0 {
				keep = append(keep, pool)
				continue
			}
			for _, sp := range arena.spans {
				if sp.pool == pool {
					arena.spans.remove(sp)
					pool.release(&arena.bk)
					arena.pages.release(sp.base, sp.npages)
					arena.n_poolfrees++
					poolbytes += sp.npages * arena.pagesize
					break
				}
			}
		}
		arena.pools[slab] = keep
	}
	reclaimed := arena.pages.collect()
	arena.reclaimed += reclaimed
	arena.n_gcs++
	// for OS pages, reclaimed already includes pages released by pools.
	if reclaimed < poolbytes {
		arena.a_reclaim.Add(poolbytes)
	} else {
		arena.a_reclaim.Add(reclaimed)
	}
	if reclaimed > 0 {
		fmsg := "%v garbage collected %v\n"
		debugf(fmsg, arena.logprefix, humanize.IBytes(uint64(reclaimed)))
	}
}

// Utilization return pooled chunk sizes and the utilization of their
// pools in percentage.
func (arena *Arena) Utilization() ([]int, []float64) {
	arena.mu.Lock()
	defer arena.mu.Unlock()

	var sizes []int
	var zs []float64
	for _, slab := range arena.slabs {
		allocated, capacity := int64(0), int64(0)
		for _, pool := range arena.pools[slab] {
			allocated += pool.allocated()
			capacity += pool.capacity()
		}
		if capacity == 0 {
			continue
		}
		sizes = append(sizes, int(slab))
		zs = append(zs, (float64(allocated)/float64(capacity))*100)
	}
	return sizes, zs
}

// Stats return arena statistics.
func (arena *Arena) Stats() map[string]interface{} {
	arena.mu.Lock()
	defer arena.mu.Unlock()

	npools, overhead := 0, int64(0)
	for _, pools := range arena.pools {
		npools += len(pools)
		for _, pool := range pools {
			overhead += pool.overhead()
		}
	}
	stats := map[string]interface{}{
		"pagesize":      arena.pagesize,
		"pool.pagesize": arena.poolpagesize,
		"pooling":       arena.pooling,
		"allocator":     arena.allocator,
		"capacity":      arena.capacity,
		"allocated":     arena.mallocated,
		"overhead":      overhead,
		"bookkeeping":   arena.bk.inuse,
		"reclaimed":     arena.reclaimed,
		"n_pools":       npools,
		"n_spans":       len(arena.spans),
		"n_allocs":      arena.n_allocs,
		"n_frees":       arena.n_frees,
		"n_fails":       arena.n_fails,
		"n_gcs":         arena.n_gcs,
		"n_gcskips":     atomic.LoadInt64(&arena.n_gcskips),
		"n_poolfrees":   arena.n_poolfrees,
	}
	if arena.pages != nil {
		stats["footprint"] = arena.pages.footprint()
	}
	if arena.h_allocsz != nil {
		stats["h_allocsz"] = arena.h_allocsz.Fullstats()
	}
	if arena.a_reclaim != nil {
		stats["a_reclaim"] = arena.a_reclaim.Stats()
	}
	return stats
}
