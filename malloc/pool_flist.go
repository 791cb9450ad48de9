package malloc

import "unsafe"

import "github.com/bnclabs/goalloc/lib"

// poolflist manages chunks using a stack of free chunk indexes.
type poolflist struct {
	mallocated int64
	size       int64
	nchunks    int64
	ptr        unsafe.Pointer
	freelist   []uint16
	freeoff    int64
	inuse      []uint64 // bit set for allocated chunks
	mem        []byte
}

func newpoolflist(
	size int64, base unsafe.Pointer, capacity int64,
	bk *bookkeeper) (mpooler, bool) {

	nchunks := capacity / size
	if nchunks > Maxchunks {
		nchunks = Maxchunks
	} else if nchunks <= 0 {
		panicerr("pool capacity %v cannot hold chunk %v", capacity, size)
	}
	nwords := lib.Ceil(nchunks, 64)
	mem, ok := bk.alloc(nwords*8 + nchunks*2)
	if !ok {
		return nil, false
	}
	inuse := unsafe.Slice((*uint64)(unsafe.Pointer(&mem[0])), nwords)
	flptr := unsafe.Pointer(&mem[nwords*8])
	freelist := unsafe.Slice((*uint16)(flptr), nchunks)
	// lower addresses are handed out first.
	for i := int64(0); i < nchunks; i++ {
		freelist[i] = uint16(nchunks - i - 1)
	}
	pool := &poolflist{
		size:     size,
		nchunks:  nchunks,
		ptr:      base,
		freelist: freelist,
		freeoff:  nchunks,
		inuse:    inuse,
		mem:      mem,
	}
	return pool, true
}

func (pool *poolflist) chunksize() int64 {
	return pool.size
}

func (pool *poolflist) base() unsafe.Pointer {
	return pool.ptr
}

func (pool *poolflist) allocchunk() (unsafe.Pointer, bool) {
	if pool.freeoff == 0 {
		return nil, false
	}
	pool.freeoff--
	nth := int64(pool.freelist[pool.freeoff])
	pool.inuse[nth/64] |= uint64(1) << uint(nth%64)
	ptr := unsafe.Add(pool.ptr, nth*pool.size)
	if (uintptr(ptr) & uintptr(Sizeinterval-1)) != 0 {
		panicerr("allocated chunk %p not %v aligned", ptr, Sizeinterval)
	}
	pool.mallocated += pool.size
	return ptr, true
}

func (pool *poolflist) free(ptr unsafe.Pointer) {
	diff := int64(uintptr(ptr) - uintptr(pool.ptr))
	if uintptr(ptr) < uintptr(pool.ptr) || diff >= pool.nchunks*pool.size {
		panicerr("free %p outside pool %p", ptr, pool.ptr)
	} else if (diff % pool.size) != 0 {
		panicerr("free %p not aligned to chunk size %v", ptr, pool.size)
	}
	nth := diff / pool.size
	mask := uint64(1) << uint(nth%64)
	if (pool.inuse[nth/64] & mask) == 0 {
		panicerr("free %p, chunk is already free", ptr)
	}
	pool.inuse[nth/64] &^= mask
	pool.freelist[pool.freeoff] = uint16(nth)
	pool.freeoff++
	pool.mallocated -= pool.size
}

func (pool *poolflist) allocated() int64 {
	return pool.mallocated
}

func (pool *poolflist) capacity() int64 {
	return pool.nchunks * pool.size
}

func (pool *poolflist) overhead() int64 {
	return int64(unsafe.Sizeof(*pool)) + int64(len(pool.mem))
}

func (pool *poolflist) release(bk *bookkeeper) {
	bk.free(pool.mem)
	pool.mem, pool.freelist, pool.inuse = nil, nil, nil
	pool.freeoff, pool.mallocated = 0, 0
}
