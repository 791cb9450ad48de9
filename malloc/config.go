package malloc

import "github.com/bnclabs/goalloc/api"

import s "github.com/bnclabs/gosettings"

// Alignment of every page run handed out by page sources.
const Alignment = int64(64)

// MEMUtilization is the ratio between allocated memory to application
// and useful memory allocated from OS.
const MEMUtilization = float64(0.95)

// Sizeinterval minblock and maxblock should be multiples of Sizeinterval.
// Pooled chunks are aligned on Sizeinterval.
const Sizeinterval = int64(32)

// Maxarenasize maximum size of a memory arena.
const Maxarenasize = int64(1024 * 1024 * 1024 * 1024)

// Maxpools maximum number of slab sizes allowed in an arena.
const Maxpools = int64(256)

// Maxchunks maximum number of chunks allowed in a pool.
const Maxchunks = int64(65536)

// Minpagesize smallest page size accepted by the arena.
const Minpagesize = int64(256)

// Descriptor for constructing an arena.
type Descriptor struct {
	// Pagesize granularity at which memory is obtained from the page
	// source, shall be power of 2.
	Pagesize int64
	// Poolpagesize size of a pool, rounded up to whole pages. Shall be
	// power of 2 and not smaller than Maxblock.
	Poolpagesize int64
	// Memoryblock optional pre-reserved memory, if supplied the arena
	// never goes to the operating system.
	Memoryblock []byte
	// Suballocator optional allocator for the arena's book keeping
	// memory, defaults to the Go heap.
	Suballocator api.Allocator
	// Pooling serve small requests from pools.
	Pooling bool
	// Capacity maximum bytes held from the operating system, zero
	// defaults to free system memory. Ignored for Memoryblock.
	Capacity int64
	// Allocator pool algorithm, "flist" or "fbit", empty string picks
	// the build's default.
	Allocator string
	// Minblock and Maxblock range of pooled chunk sizes.
	Minblock int64
	Maxblock int64
}

// Defaultsettings for arena.
//
// "pagesize" (int64, default: 4096)
//		Page size, memory is obtained from providers in pages.
//
// "pool.pagesize" (int64, default: 4096)
//		Size of a single pool of chunks.
//
// "pooling" (bool, default: true)
//		Serve small allocations from pools.
//
// "capacity" (int64, default: 0)
//		Maximum memory held from the operating system, 0 implies
//		free system memory.
//
// "allocator" (string, default: <Defaultpool>)
//		Pool algorithm, can be "flist" or "fbit".
//
// "minblock" (int64, default: 32)
//		Minimum size of a pooled chunk.
//
// "maxblock" (int64, default: 512)
//		Maximum size of a pooled chunk, larger requests are served
//		in pages.
func Defaultsettings() s.Settings {
	return s.Settings{
		"pagesize":      int64(4096),
		"pool.pagesize": int64(4096),
		"pooling":       true,
		"capacity":      int64(0),
		"allocator":     Defaultpool,
		"minblock":      int64(32),
		"maxblock":      int64(512),
	}
}

// NewDescriptor from settings, missing settings are picked from
// Defaultsettings().
func NewDescriptor(setts s.Settings) Descriptor {
	setts = make(s.Settings).Mixin(Defaultsettings(), setts)
	return Descriptor{
		Pagesize:     setts.Int64("pagesize"),
		Poolpagesize: setts.Int64("pool.pagesize"),
		Pooling:      setts.Bool("pooling"),
		Capacity:     setts.Int64("capacity"),
		Allocator:    setts.String("allocator"),
		Minblock:     setts.Int64("minblock"),
		Maxblock:     setts.Int64("maxblock"),
	}
}
