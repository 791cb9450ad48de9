// Package osalloc is the raw memory provider, it maps memory directly
// from the operating system and is the last resort of every heap schema
// that does not work over a pre-reserved memory block.
//
// There is exactly one OSAllocator per process, managed by Create,
// Ensure, Get and Destroy. Once created it is meant to live for the rest
// of the process, the registry closes it automatically at shutdown when
// it is the only allocator left.
package osalloc

import "fmt"
import "sync"
import "unsafe"

import "github.com/bnclabs/goalloc/api"
import "github.com/bnclabs/goalloc/lib"
import "github.com/bnclabs/goalloc/registry"
import "github.com/bnclabs/goalloc/singleton"
import humanize "github.com/dustin/go-humanize"

// OSAllocator hand out memory mapped from the operating system.
// It is safe to use from multiple goroutines.
type OSAllocator struct {
	mu       sync.Mutex
	mappings map[uintptr]mapping // keyed by the address handed out

	// stats
	n_maps    int64
	n_unmaps  int64
	n_fails   int64
	allocated int64 // bytes handed out
	mapped    int64 // bytes mapped, includes alignment overhead
}

type mapping struct {
	region []byte
	size   int64 // usable size from the address handed out
}

var instance = singleton.New[OSAllocator]("OSAllocator")
var ensuremu sync.Mutex

// IsReady return whether the process-wide provider exists.
func IsReady() bool {
	return instance.IsReady()
}

// Create the process-wide provider and register it with the default
// registry. Panics if it already exists.
func Create() *OSAllocator {
	osa, _ := instance.Create(func(osa *OSAllocator) error {
		osa.mappings = make(map[uintptr]mapping)
		registry.Default().RegisterAllocator(osa)
		return nil
	})
	infof("osalloc: created, page size %v\n", humanize.IBytes(uint64(Pagesize())))
	return osa
}

// Ensure create the process-wide provider unless it already exists.
func Ensure() *OSAllocator {
	ensuremu.Lock()
	defer ensuremu.Unlock()
	if instance.IsReady() {
		return instance.Get()
	}
	return Create()
}

// Get the process-wide provider, panics if it does not exist.
func Get() *OSAllocator {
	return instance.Get()
}

// Destroy the process-wide provider.
func Destroy() {
	instance.Destroy()
}

// Release implement singleton.Object interface, unregister from the
// registry and unmap everything still outstanding.
func (osa *OSAllocator) Release() {
	registry.Default().UnRegisterAllocator(osa)

	osa.mu.Lock()
	defer osa.mu.Unlock()
	if n := len(osa.mappings); n > 0 {
		warnf("osalloc: releasing %v outstanding mappings (%v)\n",
			n, humanize.IBytes(uint64(osa.allocated)))
	}
	for addr, m := range osa.mappings {
		if err := osunmap(m.region); err != nil {
			errorf("osalloc: unmap %x: %v\n", addr, err)
		}
		delete(osa.mappings, addr)
	}
	osa.allocated, osa.mapped = 0, 0
	infof("osalloc: destroyed\n")
}

// Autoclose implement api.Rawprovider interface.
func (osa *OSAllocator) Autoclose() {
	if instance.Is(osa) {
		Destroy()
		return
	}
	osa.Release()
}

// Allocate implement api.Allocator interface. Size is rounded up to the
// operating system's page size, alignment beyond the page size is met by
// over-mapping.
func (osa *OSAllocator) Allocate(
	size, align int64, flags int,
	name, file string, line, suppress int) unsafe.Pointer {

	if size <= 0 {
		panicerr("osalloc: cannot allocate %v bytes", size)
	} else if align <= 0 || !lib.Ispow2(align) {
		panicerr("osalloc: alignment %v is not power of 2", align)
	}

	pagesize := Pagesize()
	length := lib.Alignup(size, pagesize)
	if align > pagesize {
		length += align - pagesize
	}
	region, err := osmap(int(length))
	if err != nil {
		osa.mu.Lock()
		osa.n_fails++
		osa.mu.Unlock()
		fmsg := "osalloc: map %v bytes for %q (%v:%v): %v\n"
		warnf(fmsg, length, name, file, line, err)
		return nil
	}
	base := int64(uintptr(unsafe.Pointer(&region[0])))
	offset := lib.Alignup(base, align) - base
	ptr := unsafe.Pointer(&region[offset])

	osa.mu.Lock()
	defer osa.mu.Unlock()
	osa.mappings[uintptr(ptr)] = mapping{region: region, size: length - offset}
	osa.n_maps++
	osa.allocated += length - offset
	osa.mapped += length
	return ptr
}

// DeAllocate implement api.Allocator interface.
func (osa *OSAllocator) DeAllocate(ptr unsafe.Pointer, size, align int64) {
	if ptr == nil {
		return
	}

	osa.mu.Lock()
	defer osa.mu.Unlock()
	m, ok := osa.mappings[uintptr(ptr)]
	if !ok {
		panicerr("osalloc: DeAllocate on unknown address %p", ptr)
	} else if size > m.size {
		panicerr("osalloc: DeAllocate %v bytes on %v byte block", size, m.size)
	}
	delete(osa.mappings, uintptr(ptr))
	if err := osunmap(m.region); err != nil {
		errorf("osalloc: unmap %p: %v\n", ptr, err)
	}
	osa.n_unmaps++
	osa.allocated -= m.size
	osa.mapped -= int64(len(m.region))
}

// ReAllocate implement api.Allocator interface, always moves the block.
func (osa *OSAllocator) ReAllocate(
	ptr unsafe.Pointer, size, align int64) unsafe.Pointer {

	if ptr == nil {
		return osa.Allocate(size, align, api.Nullflags, "", "", 0, 1)
	} else if size == 0 {
		osa.DeAllocate(ptr, 0, 0)
		return nil
	}
	newptr := osa.Allocate(size, align, api.Nullflags, "", "", 0, 1)
	if newptr == nil {
		return nil
	}
	oldsize := osa.AllocationSize(ptr)
	if oldsize > size {
		oldsize = size
	}
	lib.Memcpy(newptr, ptr, int(oldsize))
	osa.DeAllocate(ptr, 0, 0)
	return newptr
}

// Resize implement api.Allocator interface, mappings can only be
// resized within their current length.
func (osa *OSAllocator) Resize(ptr unsafe.Pointer, size int64) int64 {
	cursize := osa.AllocationSize(ptr)
	if size <= cursize {
		return size
	}
	return cursize
}

// AllocationSize implement api.Allocator interface.
func (osa *OSAllocator) AllocationSize(ptr unsafe.Pointer) int64 {
	osa.mu.Lock()
	defer osa.mu.Unlock()
	if m, ok := osa.mappings[uintptr(ptr)]; ok {
		return m.size
	}
	return 0
}

// GarbageCollect implement api.Collector interface. Memory is unmapped
// as soon as it is freed, there is nothing to collect.
func (osa *OSAllocator) GarbageCollect() {}

// Stats return provider statistics.
func (osa *OSAllocator) Stats() map[string]interface{} {
	osa.mu.Lock()
	defer osa.mu.Unlock()
	return map[string]interface{}{
		"n_maps":    osa.n_maps,
		"n_unmaps":  osa.n_unmaps,
		"n_fails":   osa.n_fails,
		"n_live":    int64(len(osa.mappings)),
		"allocated": osa.allocated,
		"mapped":    osa.mapped,
	}
}

func panicerr(fmsg string, args ...interface{}) {
	panic(fmt.Errorf(fmsg, args...))
}
