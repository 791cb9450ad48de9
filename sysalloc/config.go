package sysalloc

import "github.com/bnclabs/goalloc/api"
import "github.com/bnclabs/goalloc/malloc"

import s "github.com/bnclabs/gosettings"

// Descriptor for creating a SystemAllocator.
type Descriptor struct {
	// Custom allocator adopted as is, Heap is ignored. Caller retains
	// ownership of the custom allocator.
	Custom api.Allocator
	Heap   Heapdesc
}

// Heapdesc parameters for constructing the heap schema. Zero valued
// page sizes pick the schema's defaults.
type Heapdesc struct {
	Pagesize     int64
	Poolpagesize int64
	// Memoryblocks pre-reserved memory, at most one block is supported.
	Memoryblocks [][]byte
	Suballocator api.Allocator
	Pooling      bool
	Capacity     int64
	Allocator    string
}

// Defaultsettings for SystemAllocator, heap schema settings are
// prefixed with "heap.".
//
// "heap.memoryblock" (int64, default: 0)
//		Size of a pre-reserved memory block, 0 implies heap memory is
//		mapped from the operating system.
//
// Refer to malloc.Defaultsettings() for rest of "heap." settings.
func Defaultsettings() s.Settings {
	setts := malloc.Defaultsettings().AddPrefix("heap.")
	setts["heap.memoryblock"] = int64(0)
	return setts
}

// NewDescriptor from settings, missing settings are picked from
// Defaultsettings().
func NewDescriptor(setts s.Settings) Descriptor {
	setts = make(s.Settings).Mixin(Defaultsettings(), setts)
	heapsetts := setts.Section("heap.").Trim("heap.")
	mdesc := malloc.NewDescriptor(heapsetts)
	desc := Descriptor{
		Heap: Heapdesc{
			Pagesize:     mdesc.Pagesize,
			Poolpagesize: mdesc.Poolpagesize,
			Pooling:      mdesc.Pooling,
			Capacity:     mdesc.Capacity,
			Allocator:    mdesc.Allocator,
		},
	}
	if size := heapsetts.Int64("memoryblock"); size > 0 {
		desc.Heap.Memoryblocks = [][]byte{make([]byte, size)}
	}
	return desc
}

func (heap Heapdesc) descriptor() malloc.Descriptor {
	if len(heap.Memoryblocks) > 1 {
		panicerr("SystemAllocator supports one memory block, got %v",
			len(heap.Memoryblocks))
	}
	desc := malloc.NewDescriptor(nil)
	if heap.Pagesize > 0 {
		desc.Pagesize = heap.Pagesize
	}
	if heap.Poolpagesize > 0 {
		desc.Poolpagesize = heap.Poolpagesize
	}
	if len(heap.Memoryblocks) == 1 {
		desc.Memoryblock = heap.Memoryblocks[0]
	}
	desc.Suballocator = heap.Suballocator
	desc.Pooling = heap.Pooling
	desc.Capacity = heap.Capacity
	if heap.Allocator != "" {
		desc.Allocator = heap.Allocator
	}
	return desc
}
