// Package malloc supplies the heap schema that backs the root allocator
// and every allocator built like it.
//
//  * An Arena is safe to use from multiple goroutines, all operations
//    serialize on the arena's lock.
//  * Memory comes in pages, either carved out of a single pre-reserved
//    memory block or mapped from the operating system through osalloc.
//  * Small requests are served from pools, each pool is a run of pages
//    sliced up into chunks of the same size. Pool algorithm can be
//    "flist" (free list of chunk indexes) or "fbit" (two level bitmap).
//  * Large requests, and every request when pooling is disabled, are
//    served as a run of whole pages.
//  * Freed pages are not immediately given back. Empty pools and cached
//    page runs are returned to their provider by GarbageCollect().
//  * Memory handed out is always aligned on Sizeinterval bytes, larger
//    alignments are honoured by over-reserving pages.
//
// Arena can be constructed in place, with Init() and Release(), for
// callers that cannot allocate the arena itself dynamically.
package malloc
