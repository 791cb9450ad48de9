// Package registry implements the process-wide book keeping of live
// allocators.
//
// Every allocator registers itself the moment its construction succeeds
// and unregisters itself at the start of its teardown. On memory pressure
// GarbageCollect() broadcasts a collection pass to every registered
// allocator. The registry also holds a small table of memory breakpoints
// that allocators consult before completing an allocation, and an
// optional out-of-memory listener.
//
// The registry holds a fixed number of records. Records are identified
// by address, insertion order is not meaningful, and removal fills the
// vacated slot with the last record.
//
// Default() returns the registry used by the allocators in this module,
// it is created on first use. Call Close() at process end to verify that
// all allocators were destroyed.
package registry
