package registry

import "math/rand"
import "sync"
import "sync/atomic"
import "testing"
import "unsafe"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

type testcollector struct {
	id    int
	ncoll int64
	oncoll func()
}

func (c *testcollector) GarbageCollect() {
	atomic.AddInt64(&c.ncoll, 1)
	if c.oncoll != nil {
		c.oncoll()
	}
}

type testprovider struct {
	testcollector
	mgr    *Manager
	closed bool
}

func (p *testprovider) Allocate(
	size, align int64, flags int,
	name, file string, line, suppress int) unsafe.Pointer {
	return nil
}

func (p *testprovider) DeAllocate(ptr unsafe.Pointer, size, align int64) {}

func (p *testprovider) ReAllocate(
	ptr unsafe.Pointer, size, align int64) unsafe.Pointer {
	return nil
}

func (p *testprovider) Resize(ptr unsafe.Pointer, size int64) int64 {
	return 0
}

func (p *testprovider) AllocationSize(ptr unsafe.Pointer) int64 {
	return 0
}

func (p *testprovider) Autoclose() {
	p.closed = true
	p.mgr.UnRegisterAllocator(p)
}

func TestRegisterUnregister(t *testing.T) {
	mgr := New(Maxallocators)
	live := map[*testcollector]bool{}
	all := []*testcollector{}
	for i := 0; i < 64; i++ {
		all = append(all, &testcollector{id: i})
	}

	nregs, nunregs := 0, 0
	for i := 0; i < 10000; i++ {
		c := all[rand.Intn(len(all))]
		if live[c] == false && rand.Intn(2) == 0 {
			mgr.RegisterAllocator(c)
			live[c] = true
			nregs++
		} else {
			if live[c] {
				nunregs++
			}
			mgr.UnRegisterAllocator(c)
			delete(live, c)
		}
		if i%100 == 0 {
			require.Equal(t, nregs-nunregs, mgr.NumAllocators())
		}
	}
	require.Equal(t, nregs-nunregs, mgr.NumAllocators())
	require.Equal(t, len(live), mgr.NumAllocators())
	for _, c := range all {
		assert.Equal(t, live[c], mgr.IsRegistered(c), "collector %v", c.id)
	}
}

func TestUnregisterMissing(t *testing.T) {
	mgr := New(4)
	a, b := &testcollector{id: 1}, &testcollector{id: 2}
	mgr.RegisterAllocator(a)
	mgr.UnRegisterAllocator(b)
	assert.Equal(t, 1, mgr.NumAllocators())
	assert.True(t, mgr.IsRegistered(a))

	// unordered removal keeps no holes.
	c, d := &testcollector{id: 3}, &testcollector{id: 4}
	mgr.RegisterAllocator(c)
	mgr.RegisterAllocator(d)
	mgr.UnRegisterAllocator(a)
	assert.Equal(t, 2, mgr.NumAllocators())
	assert.True(t, mgr.IsRegistered(c))
	assert.True(t, mgr.IsRegistered(d))
	mgr.GarbageCollect()
	assert.Equal(t, int64(0), a.ncoll)
	assert.Equal(t, int64(1), c.ncoll)
	assert.Equal(t, int64(1), d.ncoll)
}

func TestCapacityExceeded(t *testing.T) {
	mgr := New(3)
	cs := []*testcollector{{id: 0}, {id: 1}, {id: 2}}
	for _, c := range cs {
		mgr.RegisterAllocator(c)
	}

	extra := &testcollector{id: 3}
	require.Panics(t, func() { mgr.RegisterAllocator(extra) })

	assert.Equal(t, 3, mgr.NumAllocators())
	assert.False(t, mgr.IsRegistered(extra))
	for _, c := range cs {
		assert.True(t, mgr.IsRegistered(c))
	}
	// registry is still usable after the violation.
	mgr.UnRegisterAllocator(cs[1])
	mgr.RegisterAllocator(extra)
	assert.True(t, mgr.IsRegistered(extra))
}

func TestGarbageCollectEmpty(t *testing.T) {
	mgr := New(Maxallocators)
	mgr.GarbageCollect()
	assert.Equal(t, int64(1), mgr.Stats()["n_gcpasses"])
	assert.Equal(t, int64(0), mgr.Stats()["n_visited"])
}

func TestGarbageCollectReentrant(t *testing.T) {
	mgr := New(8)
	late := &testcollector{id: 100}

	a := &testcollector{id: 1}
	a.oncoll = func() {
		// call back into the registry while a pass is in progress.
		mgr.IsMemoryBreakActive(0)
		if !mgr.IsRegistered(late) {
			mgr.RegisterAllocator(late)
		}
	}
	b := &testcollector{id: 2}
	b.oncoll = func() {
		mgr.UnRegisterAllocator(b)
	}
	mgr.RegisterAllocator(a)
	mgr.RegisterAllocator(b)

	mgr.GarbageCollect()
	assert.Equal(t, int64(1), a.ncoll)
	assert.Equal(t, int64(1), b.ncoll)
	assert.Equal(t, int64(0), late.ncoll, "registered after snapshot")
	assert.True(t, mgr.IsRegistered(late))
	assert.False(t, mgr.IsRegistered(b))

	// nested pass from within a collection routine.
	nested := 0
	c := &testcollector{id: 3}
	c.oncoll = func() {
		if nested == 0 {
			nested++
			mgr.GarbageCollect()
		}
	}
	mgr.RegisterAllocator(c)
	mgr.GarbageCollect()
	assert.Equal(t, int64(2), c.ncoll)
}

func TestConcurrentRegistry(t *testing.T) {
	var wg sync.WaitGroup

	mgr := New(Maxallocators)
	for n := 0; n < 8; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			cs := make([]*testcollector, 10)
			for i := range cs {
				cs[i] = &testcollector{id: n*100 + i}
			}
			for i := 0; i < 1000; i++ {
				c := cs[i%len(cs)]
				if mgr.IsRegistered(c) {
					mgr.UnRegisterAllocator(c)
				} else {
					mgr.RegisterAllocator(c)
				}
				if i%50 == 0 {
					mgr.GarbageCollect()
				}
			}
			for _, c := range cs {
				mgr.UnRegisterAllocator(c)
			}
		}(n)
	}
	wg.Wait()
	assert.Equal(t, 0, mgr.NumAllocators())
}

func TestOutOfMemoryListener(t *testing.T) {
	mgr := New(4)
	assert.False(t, mgr.OutOfMemory())

	first, second := 0, 0
	require.True(t, mgr.AddOutOfMemoryListener(func() { first++ }))
	require.False(t, mgr.AddOutOfMemoryListener(func() { second++ }))

	assert.True(t, mgr.OutOfMemory())
	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second)

	mgr.RemoveOutOfMemoryListener()
	require.True(t, mgr.AddOutOfMemoryListener(func() { second++ }))
	mgr.OutOfMemory()
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
}

func TestCloseAutoclosesProvider(t *testing.T) {
	mgr := New(4)
	p := &testprovider{mgr: mgr}
	mgr.RegisterAllocator(p)
	mgr.Close()
	assert.True(t, p.closed)
	assert.Equal(t, 0, mgr.NumAllocators())
}

func TestCloseLeaks(t *testing.T) {
	mgr := New(4)
	p := &testprovider{mgr: mgr}
	c := &testcollector{}
	mgr.RegisterAllocator(p)
	mgr.RegisterAllocator(c)
	require.Panics(t, func() { mgr.Close() })
	assert.False(t, p.closed, "provider is not the only survivor")

	mgr.SetAllocatorLeaking(true)
	require.NotPanics(t, func() { mgr.Close() })

	mgr.SetAllocatorLeaking(false)
	mgr.UnRegisterAllocator(c)
	mgr.UnRegisterAllocator(p)
	require.NotPanics(t, func() { mgr.Close() })
}

func TestDefault(t *testing.T) {
	require.NotNil(t, Default())
	assert.True(t, Default() == Default())
	assert.Equal(t, int64(Maxallocators), Default().Stats()["capacity"])
}

func BenchmarkRegister(b *testing.B) {
	mgr := New(Maxallocators)
	c := &testcollector{}
	for i := 0; i < b.N; i++ {
		mgr.RegisterAllocator(c)
		mgr.UnRegisterAllocator(c)
	}
}
