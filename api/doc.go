// Package api define the capability interfaces shared by the allocator
// registry, the root allocator, heap schemas and the raw memory provider.
//
// Addresses are passed around as unsafe.Pointer. Memory handed out by
// these interfaces lives outside the Go heap, or inside a byte slice
// owned by the allocator, and shall not be used to store Go pointers.
package api
