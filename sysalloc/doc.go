// Package sysalloc implements the root allocator of the process.
//
// The first SystemAllocator, created through sysalloc.Create(), is the
// root. Its heap schema is constructed in place inside package level
// storage, since no allocator exists yet to supply memory for it. Every
// other SystemAllocator, created with New() and Create(), requires the
// root to be ready and delegates its book keeping memory to the root.
//
// Allocation failures are retried once after a process wide garbage
// collection through the registry, a second failure panics with
// *AllocationError.
package sysalloc
