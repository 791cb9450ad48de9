package registry

import "fmt"
import "sync"
import "sync/atomic"

import "github.com/bnclabs/goalloc/api"
import "github.com/bnclabs/goalloc/lib"

// Maxallocators default capacity of the registry.
const Maxallocators = 100

// OutOfMemoryListener is installed by the broader system to be told about
// memory exhaustion, context is captured by the closure.
type OutOfMemoryListener func()

// Manager tracks live allocator instances.
type Manager struct {
	mu         sync.Mutex
	allocators []api.Collector // fixed capacity, never grown
	nallocs    int
	oomlistner OutOfMemoryListener
	leaking    bool

	// memory breakpoints, activebreaks is also read without mu, hence
	// all updates are atomic.
	activebreaks uint32
	breaks       [Maxmemorybreaks]MemoryBreak
	breakhandler BreakHandler

	// stats
	n_gcpasses int64
	n_visited  int64
}

var defaultmgr *Manager
var defaultonce sync.Once

// Default return the process-wide registry, created on first use.
func Default() *Manager {
	defaultonce.Do(func() {
		defaultmgr = New(Maxallocators)
	})
	return defaultmgr
}

// New registry that can track upto `capacity` allocators. Applications
// shall use Default(), New is meant for embedding and testing.
func New(capacity int) *Manager {
	if capacity <= 0 {
		panicerr("invalid registry capacity %v", capacity)
	}
	mgr := &Manager{
		allocators:   make([]api.Collector, capacity),
		breakhandler: defaultBreakHandler,
	}
	for i := range mgr.breaks {
		mgr.breaks[i] = NewMemoryBreak()
	}
	return mgr
}

// RegisterAllocator add alloc to the live set. Registering beyond the
// registry's capacity is a contract violation.
func (mgr *Manager) RegisterAllocator(alloc api.Collector) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	if mgr.nallocs >= len(mgr.allocators) {
		fmsg := "too many allocators %v, max is %v"
		panicerr(fmsg, mgr.nallocs, len(mgr.allocators))
	}
	mgr.allocators[mgr.nallocs] = alloc
	mgr.nallocs++
	debugf("registry: registered %T, %v live\n", alloc, mgr.nallocs)
}

// UnRegisterAllocator remove alloc from the live set, the vacated slot
// is filled with the last record. No-op if alloc is not registered.
func (mgr *Manager) UnRegisterAllocator(alloc api.Collector) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	for i := 0; i < mgr.nallocs; i++ {
		if mgr.allocators[i] == alloc {
			mgr.nallocs--
			mgr.allocators[i] = mgr.allocators[mgr.nallocs]
			mgr.allocators[mgr.nallocs] = nil
			debugf("registry: unregistered %T, %v live\n", alloc, mgr.nallocs)
			return
		}
	}
}

// NumAllocators return the number of live allocators.
func (mgr *Manager) NumAllocators() int {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	return mgr.nallocs
}

// IsRegistered return true if alloc is in the live set.
func (mgr *Manager) IsRegistered(alloc api.Collector) bool {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	for i := 0; i < mgr.nallocs; i++ {
		if mgr.allocators[i] == alloc {
			return true
		}
	}
	return false
}

// GarbageCollect ask every registered allocator to give back unused
// memory. The live set is snapshotted under the lock and visited without
// it, so allocators are free to call back into the registry. An allocator
// registered after the snapshot is not visited by this pass.
func (mgr *Manager) GarbageCollect() {
	mgr.mu.Lock()
	snapshot := make([]api.Collector, mgr.nallocs)
	copy(snapshot, mgr.allocators[:mgr.nallocs])
	mgr.mu.Unlock()

	for _, alloc := range snapshot {
		alloc.GarbageCollect()
	}
	atomic.AddInt64(&mgr.n_gcpasses, 1)
	atomic.AddInt64(&mgr.n_visited, int64(len(snapshot)))
	debugf("registry: collection pass over %v allocators\n", len(snapshot))
}

// AddOutOfMemoryListener install fn, return false if a listener is
// already installed, in which case the installed one is kept.
func (mgr *Manager) AddOutOfMemoryListener(fn OutOfMemoryListener) bool {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	if mgr.oomlistner != nil {
		warnf("registry: out of memory listener was already installed\n")
		return false
	}
	mgr.oomlistner = fn
	return true
}

// RemoveOutOfMemoryListener uninstall the listener, if any.
func (mgr *Manager) RemoveOutOfMemoryListener() {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	mgr.oomlistner = nil
}

// OutOfMemory invoke the installed listener, if any, and return whether
// a listener was invoked. The listener is called without the lock held.
func (mgr *Manager) OutOfMemory() bool {
	mgr.mu.Lock()
	fn := mgr.oomlistner
	mgr.mu.Unlock()

	if fn == nil {
		return false
	}
	fn()
	return true
}

// SetAllocatorLeaking suppress the leak check in Close(), applications
// that deliberately skip allocator teardown shall set this.
func (mgr *Manager) SetAllocatorLeaking(leaking bool) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	mgr.leaking = leaking
}

// Close is the shutdown check. If the raw memory provider is the only
// allocator alive it is closed automatically, otherwise all allocators
// shall have been unregistered unless the leaking flag is set.
func (mgr *Manager) Close() {
	mgr.mu.Lock()
	var provider api.Rawprovider
	if mgr.nallocs == 1 {
		provider, _ = mgr.allocators[0].(api.Rawprovider)
	}
	mgr.mu.Unlock()

	if provider != nil {
		infof("registry: closing raw memory provider %T\n", provider)
		provider.Autoclose()
	}

	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	if mgr.leaking == false && mgr.nallocs != 0 {
		panicerr("there are still %v registered allocators", mgr.nallocs)
	}
}

// Stats return registry statistics.
func (mgr *Manager) Stats() map[string]interface{} {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	return map[string]interface{}{
		"n_allocators":  int64(mgr.nallocs),
		"capacity":      int64(len(mgr.allocators)),
		"n_gcpasses":    atomic.LoadInt64(&mgr.n_gcpasses),
		"n_visited":     atomic.LoadInt64(&mgr.n_visited),
		"n_breaks":      int64(lib.Bit32(atomic.LoadUint32(&mgr.activebreaks)).Ones()),
		"leaking":       mgr.leaking,
		"oom.installed": mgr.oomlistner != nil,
	}
}

func panicerr(fmsg string, args ...interface{}) {
	panic(fmt.Errorf(fmsg, args...))
}
