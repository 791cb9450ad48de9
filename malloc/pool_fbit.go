package malloc

import "unsafe"

// poolfbit manages chunks using freebits.
type poolfbit struct {
	mallocated int64
	size       int64
	ptr        unsafe.Pointer
	fbits      freebits
	mem        []byte
}

func newpoolfbit(
	size int64, base unsafe.Pointer, capacity int64,
	bk *bookkeeper) (mpooler, bool) {

	nchunks := capacity / size
	if nchunks > Maxchunks {
		nchunks = Maxchunks
	} else if nchunks <= 0 {
		panicerr("pool capacity %v cannot hold chunk %v", capacity, size)
	}
	mem, ok := bk.alloc(freebitsize(nchunks))
	if !ok {
		return nil, false
	}
	pool := &poolfbit{size: size, ptr: base, mem: mem}
	initfreebits(&pool.fbits, nchunks, mem)
	return pool, true
}

func (pool *poolfbit) chunksize() int64 {
	return pool.size
}

func (pool *poolfbit) base() unsafe.Pointer {
	return pool.ptr
}

func (pool *poolfbit) allocchunk() (unsafe.Pointer, bool) {
	nth := pool.fbits.alloc()
	if nth < 0 {
		return nil, false
	}
	ptr := unsafe.Add(pool.ptr, nth*pool.size)
	if (uintptr(ptr) & uintptr(Sizeinterval-1)) != 0 {
		panicerr("allocated chunk %p not %v aligned", ptr, Sizeinterval)
	}
	pool.mallocated += pool.size
	return ptr, true
}

func (pool *poolfbit) free(ptr unsafe.Pointer) {
	diff := int64(uintptr(ptr) - uintptr(pool.ptr))
	if uintptr(ptr) < uintptr(pool.ptr) || diff >= pool.capacity() {
		panicerr("free %p outside pool %p", ptr, pool.ptr)
	} else if (diff % pool.size) != 0 {
		panicerr("free %p not aligned to chunk size %v", ptr, pool.size)
	} else if !pool.fbits.free(diff / pool.size) {
		panicerr("free %p, chunk is already free", ptr)
	}
	pool.mallocated -= pool.size
}

func (pool *poolfbit) allocated() int64 {
	return pool.mallocated
}

func (pool *poolfbit) capacity() int64 {
	return pool.fbits.nbits * pool.size
}

func (pool *poolfbit) overhead() int64 {
	return int64(unsafe.Sizeof(*pool)) + int64(len(pool.mem))
}

func (pool *poolfbit) release(bk *bookkeeper) {
	bk.free(pool.mem)
	pool.mem, pool.fbits = nil, freebits{}
	pool.mallocated = 0
}
