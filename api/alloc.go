package api

import "unsafe"

// Collector is the only capability the registry needs from an allocator.
// GarbageCollect can be called at any time, from any goroutine, and
// shall give unused internal memory back to its provider.
type Collector interface {
	GarbageCollect()
}

// Allocator interface for custom memory management. Sizes and alignments
// are in bytes, alignment shall be a power of 2.
type Allocator interface {
	// Allocate `size` bytes aligned on `align`. `flags`, `name`, `file`
	// and `line` are provenance for diagnostics, `suppress` is the number
	// of caller frames to skip when recording stack information. Return
	// nil if the request cannot be satisfied.
	Allocate(
		size, align int64, flags int,
		name, file string, line, suppress int) unsafe.Pointer

	// DeAllocate memory returned by Allocate. `size` and `align` are the
	// values passed to Allocate, zero if unknown.
	DeAllocate(ptr unsafe.Pointer, size, align int64)

	// ReAllocate move or grow ptr to `size` bytes aligned on `align`,
	// content is preserved up to the smaller of the two sizes. Return nil
	// if the request cannot be satisfied, in which case ptr is untouched.
	ReAllocate(ptr unsafe.Pointer, size, align int64) unsafe.Pointer

	// Resize ptr in place and return the achieved size. If the block
	// cannot be resized without moving it, return its current size.
	Resize(ptr unsafe.Pointer, size int64) int64

	// AllocationSize return the usable size of memory pointed by ptr.
	AllocationSize(ptr unsafe.Pointer) int64

	Collector
}

// Schema is a heap layout algorithm that an allocator can be built upon.
type Schema interface {
	Allocator

	// Release the schema and all memory obtained from its providers.
	Release()
}

// Rawprovider is implemented by the allocator that obtains pages from the
// operating system. The registry closes it automatically if it is the
// only allocator alive at shutdown.
type Rawprovider interface {
	Allocator

	// Autoclose destroy the provider and unregister it.
	Autoclose()
}
