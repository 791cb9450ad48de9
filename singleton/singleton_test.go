package singleton

import "errors"
import "sync"
import "sync/atomic"
import "testing"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

type widget struct {
	id       int
	released bool
}

func (w *widget) Release() {
	w.released = true
}

func TestLifecycle(t *testing.T) {
	inst := New[widget]("widget")
	require.False(t, inst.IsReady())

	w, err := inst.Create(func(w *widget) error {
		w.id = 10
		return nil
	})
	require.NoError(t, err)
	require.True(t, inst.IsReady())
	assert.Equal(t, 10, inst.Get().id)
	assert.True(t, inst.Is(w))
	assert.False(t, inst.Is(&widget{}))

	inst.Destroy()
	assert.False(t, inst.IsReady())
	assert.True(t, w.released)
	assert.False(t, inst.Is(w))

	// can be created again after destroy.
	_, err = inst.Create(nil)
	require.NoError(t, err)
	inst.Destroy()
}

func TestContractViolations(t *testing.T) {
	inst := New[widget]("widget")

	require.Panics(t, func() { inst.Get() })
	require.Panics(t, func() { inst.Destroy() })

	_, err := inst.Create(nil)
	require.NoError(t, err)
	first := inst.Get()
	require.Panics(t, func() { inst.Create(nil) })
	assert.True(t, inst.Is(first), "second create must not replace the first")

	inst.Destroy()
	require.Panics(t, func() { inst.Destroy() })
}

func TestIsDuringConstruction(t *testing.T) {
	inst := New[widget]("widget")
	_, err := inst.Create(func(w *widget) error {
		assert.True(t, inst.Is(w))
		assert.False(t, inst.IsReady())
		assert.Panics(t, func() { inst.Get() })
		return nil
	})
	require.NoError(t, err)
	inst.Destroy()
}

func TestConstructFailure(t *testing.T) {
	inst := New[widget]("widget")
	errfail := errors.New("fail")

	w, err := inst.Create(func(w *widget) error { return errfail })
	assert.Equal(t, errfail, err)
	assert.Nil(t, w)
	assert.False(t, inst.IsReady())

	// construct panics, storage is given up.
	require.Panics(t, func() {
		inst.Create(func(w *widget) error { panic("construct") })
	})
	assert.False(t, inst.IsReady())

	_, err = inst.Create(nil)
	require.NoError(t, err)
	inst.Destroy()
}

func TestConcurrentCreate(t *testing.T) {
	var wg sync.WaitGroup
	var created, rejected int64

	inst := New[widget]("widget")
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					atomic.AddInt64(&rejected, 1)
				}
			}()
			inst.Create(nil)
			atomic.AddInt64(&created, 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), created)
	assert.Equal(t, int64(15), rejected)
	inst.Destroy()
}
