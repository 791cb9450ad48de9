package sysalloc

import "fmt"
import "sync"
import "sync/atomic"
import "unsafe"

import "github.com/bnclabs/goalloc/api"
import "github.com/bnclabs/goalloc/lib"
import "github.com/bnclabs/goalloc/malloc"
import "github.com/bnclabs/goalloc/osalloc"
import "github.com/bnclabs/goalloc/registry"
import "github.com/bnclabs/goalloc/singleton"
import humanize "github.com/dustin/go-humanize"

// SystemAllocator delegates to a heap schema, either constructed by
// Create or adopted from a custom allocator.
type SystemAllocator struct {
	n_retries int64 // atomic
	n_fatals  int64 // atomic

	mu        sync.RWMutex
	ready     bool
	custom    bool // adopted allocator, not owned
	static    bool // schema is bound to static storage
	allocator api.Allocator
	schema    api.Schema // nil for custom allocator
	logprefix string
}

var root = singleton.New[SystemAllocator]("SystemAllocator")

// IsReady return true if the root allocator is ready.
func IsReady() bool {
	return root.IsReady()
}

// Create the root allocator, panics if it already exists.
func Create(desc Descriptor) (*SystemAllocator, error) {
	return root.Create(func(sa *SystemAllocator) error {
		return sa.Create(desc)
	})
}

// Get the root allocator, panics if it is not ready.
func Get() *SystemAllocator {
	return root.Get()
}

// Destroy the root allocator, panics if it is not ready.
func Destroy() {
	root.Destroy()
}

// New SystemAllocator that is not the root, should be followed by
// Create().
func New() *SystemAllocator {
	return &SystemAllocator{}
}

// Create backing heap schema, or adopt a custom allocator, and register
// with the default registry.
func (sa *SystemAllocator) Create(desc Descriptor) error {
	sa.mu.Lock()
	defer sa.mu.Unlock()

	if sa.ready {
		panicerr("SystemAllocator already created")
	}
	osalloc.Ensure()

	isroot := root.Is(sa)
	sa.logprefix = fmt.Sprintf("SYSA [%p]", sa)
	if isroot {
		sa.logprefix = "SYSA [root]"
	}

	if desc.Custom != nil {
		sa.allocator, sa.custom = desc.Custom, true
		sa.ready = true
		registry.Default().RegisterAllocator(sa)
		infof("%v adopted custom allocator %T\n", sa.logprefix, desc.Custom)
		return nil
	}

	mdesc := desc.Heap.descriptor()
	if isroot {
		arena, err := BindSystemSchema(mdesc)
		if err != nil {
			warnf("%v schema construction failed: %v\n", sa.logprefix, err)
			return err
		}
		sa.schema, sa.static = arena, true

	} else {
		if !root.IsReady() {
			panicerr("%v root SystemAllocator is not ready", sa.logprefix)
		}
		if mdesc.Suballocator == nil {
			mdesc.Suballocator = root.Get()
		}
		arena, err := malloc.NewArena(mdesc)
		if err != nil {
			warnf("%v schema construction failed: %v\n", sa.logprefix, err)
			return err
		}
		sa.schema = arena
	}
	sa.allocator, sa.ready = sa.schema, true
	registry.Default().RegisterAllocator(sa)

	fmsg := "%v created with pagesize %v pooling:%v\n"
	pagesize := humanize.IBytes(uint64(mdesc.Pagesize))
	infof(fmsg, sa.logprefix, pagesize, mdesc.Pooling)
	return nil
}

// Destroy unregister from the registry and release the schema, panics
// if allocator is not ready.
func (sa *SystemAllocator) Destroy() {
	sa.mu.Lock()
	defer sa.mu.Unlock()
	if !sa.ready {
		panicerr("%v SystemAllocator is not ready", sa.logprefix)
	}
	sa.destroy()
}

func (sa *SystemAllocator) destroy() {
	registry.Default().UnRegisterAllocator(sa)
	switch {
	case sa.static:
		UnbindSystemSchema()
	case sa.custom:
	default:
		sa.schema.Release()
	}
	sa.allocator, sa.schema = nil, nil
	sa.ready, sa.custom, sa.static = false, false, false
	infof("%v destroyed\n", sa.logprefix)
}

// Release implement singleton.Object, destroy allocator if it is still
// ready.
func (sa *SystemAllocator) Release() {
	sa.mu.Lock()
	defer sa.mu.Unlock()
	if sa.ready {
		sa.destroy()
	}
}

// IsReady return true if allocator is created and not destroyed.
func (sa *SystemAllocator) IsReady() bool {
	sa.mu.RLock()
	defer sa.mu.RUnlock()
	return sa.ready
}

// IsCustom return true if allocator adopted a custom allocator.
func (sa *SystemAllocator) IsCustom() bool {
	sa.mu.RLock()
	defer sa.mu.RUnlock()
	return sa.custom
}

// Allocate implement api.Allocator. If the schema is out of memory,
// garbage is collected across the registry and allocation is retried
// once. Panics with *AllocationError if retry fails.
func (sa *SystemAllocator) Allocate(
	size, align int64, flags int, name, file string,
	line, suppress int) unsafe.Pointer {

	if size <= 0 {
		panicerr("%v Allocate(): invalid size %v", sa.logprefix, size)
	} else if !lib.Ispow2(align) {
		fmsg := "%v Allocate(): alignment %v not power of 2"
		panicerr(fmsg, sa.logprefix, align)
	}

	ptr := sa.allocate(size, align, flags, name, file, line, suppress+1)
	if ptr == nil {
		atomic.AddInt64(&sa.n_retries, 1)

		fmsg := "%v out of memory for %v, collecting garbage\n"
		warnf(fmsg, sa.logprefix, humanize.IBytes(uint64(size)))
		registry.Default().GarbageCollect()
		sa.collectschema()

		ptr = sa.allocate(size, align, flags, name, file, line, suppress+1)
		if ptr == nil {
			atomic.AddInt64(&sa.n_fatals, 1)

			err := &AllocationError{
				Size: size, Alignment: align, Flags: flags,
				Name: name, File: file, Line: line,
			}
			errorf("%v %v\n", sa.logprefix, err)
			panic(err)
		}
	}
	registry.Default().CheckMemoryBreak(ptr, size, align, name, file, line)
	return ptr
}

func (sa *SystemAllocator) allocate(
	size, align int64, flags int, name, file string,
	line, suppress int) unsafe.Pointer {

	return sa.delegate().Allocate(
		size, align, flags, name, file, line, suppress)
}

// waitcollector is implemented by schemas that can collect garbage
// waiting for their own lock, malloc.Arena's GarbageCollect skips
// the arena while other goroutines are inside it.
type waitcollector interface {
	Collect()
}

func (sa *SystemAllocator) collectschema() {
	sa.mu.RLock()
	schema := sa.schema
	sa.mu.RUnlock()
	if collector, ok := schema.(waitcollector); ok {
		collector.Collect()
	}
}

// delegate return the backing allocator, panics if not ready.
func (sa *SystemAllocator) delegate() api.Allocator {
	sa.mu.RLock()
	defer sa.mu.RUnlock()
	if !sa.ready {
		panicerr("%v SystemAllocator is not ready", sa.logprefix)
	}
	return sa.allocator
}

// DeAllocate implement api.Allocator.
func (sa *SystemAllocator) DeAllocate(ptr unsafe.Pointer, size, align int64) {
	sa.delegate().DeAllocate(ptr, size, align)
}

// ReAllocate implement api.Allocator.
func (sa *SystemAllocator) ReAllocate(
	ptr unsafe.Pointer, size, align int64) unsafe.Pointer {

	return sa.delegate().ReAllocate(ptr, size, align)
}

// Resize implement api.Allocator.
func (sa *SystemAllocator) Resize(ptr unsafe.Pointer, size int64) int64 {
	return sa.delegate().Resize(ptr, size)
}

// AllocationSize implement api.Allocator.
func (sa *SystemAllocator) AllocationSize(ptr unsafe.Pointer) int64 {
	return sa.delegate().AllocationSize(ptr)
}

// GarbageCollect implement api.Collector, a no-op if the allocator is
// not ready.
func (sa *SystemAllocator) GarbageCollect() {
	sa.mu.RLock()
	defer sa.mu.RUnlock()
	if sa.ready {
		sa.allocator.GarbageCollect()
	}
}

// Stats return allocator statistics, along with schema statistics
// under "schema" if the schema supplies them.
func (sa *SystemAllocator) Stats() map[string]interface{} {
	sa.mu.RLock()
	defer sa.mu.RUnlock()

	stats := map[string]interface{}{
		"ready":     sa.ready,
		"custom":    sa.custom,
		"static":    sa.static,
		"n_retries": atomic.LoadInt64(&sa.n_retries),
		"n_fatals":  atomic.LoadInt64(&sa.n_fatals),
	}
	type statser interface {
		Stats() map[string]interface{}
	}
	if schema, ok := sa.allocator.(statser); ok {
		stats["schema"] = schema.Stats()
	}
	return stats
}
