package malloc

import "unsafe"

// mpooler manage a pool of same sized chunks carved out of a run of
// pages.
type mpooler interface {
	// chunksize managed by this pool.
	chunksize() int64

	// base address of the pool's pages.
	base() unsafe.Pointer

	// allocchunk from pool, return false if the pool is exhausted.
	allocchunk() (ptr unsafe.Pointer, ok bool)

	// free chunk back to pool.
	free(ptr unsafe.Pointer)

	// allocated memory from this pool, in bytes.
	allocated() int64

	// capacity of the pool, in bytes.
	capacity() int64

	// overhead book keeping memory used by this pool, in bytes.
	overhead() int64

	// release book keeping memory. Pool's pages are returned to
	// the page source by the arena.
	release(bk *bookkeeper)
}

type poolmaker func(
	size int64, base unsafe.Pointer, capacity int64,
	bk *bookkeeper) (mpooler, bool)
