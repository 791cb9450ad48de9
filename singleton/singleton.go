// Package singleton gives a type exactly one process-wide instance with
// an explicit create and destroy lifecycle.
//
// Instances are declared at package scope, one per type:
//
//	var instance = singleton.New[OSAllocator]("OSAllocator")
//
// Creating an instance that already exists, or getting or destroying an
// instance that does not, is a contract violation and panics.
package singleton

import "fmt"
import "sync"

// Object is the constraint on instance types, the pointer type shall
// supply Release() which is called by Destroy.
type Object[T any] interface {
	*T
	Release()
}

const (
	stateNone int = iota
	stateConstructing
	stateReady
)

// Instance holds the sole instance of type T.
type Instance[T any, PT Object[T]] struct {
	mu    sync.Mutex
	name  string
	obj   PT
	state int
}

// New instance accessor for type T, name is used in panic messages.
func New[T any, PT Object[T]](name string) *Instance[T, PT] {
	return &Instance[T, PT]{name: name}
}

// IsReady return true iff an instance exists and its construction
// has completed.
func (inst *Instance[T, PT]) IsReady() bool {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.state == stateReady
}

// Create the sole instance. Storage for the object is reserved before
// `construct` is called, so that construct can use Is() to learn it is
// building the designated instance. If construct fails the storage is
// given up and the error returned.
func (inst *Instance[T, PT]) Create(construct func(PT) error) (PT, error) {
	inst.mu.Lock()
	if inst.state != stateNone {
		inst.mu.Unlock()
		panicerr("%v instance already exists", inst.name)
	}
	obj := PT(new(T))
	inst.obj, inst.state = obj, stateConstructing
	inst.mu.Unlock()

	// construct may call into other instances or into Is(), hence the
	// lock is not held across the call.
	done := false
	defer func() {
		if !done {
			inst.mu.Lock()
			inst.obj, inst.state = nil, stateNone
			inst.mu.Unlock()
		}
	}()
	if construct != nil {
		if err := construct(obj); err != nil {
			return nil, err
		}
	}

	inst.mu.Lock()
	inst.state, done = stateReady, true
	inst.mu.Unlock()
	return obj, nil
}

// Get the instance.
func (inst *Instance[T, PT]) Get() PT {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	if inst.state != stateReady {
		panicerr("%v instance is not ready", inst.name)
	}
	return inst.obj
}

// Is return true if obj is the instance, or the instance under
// construction.
func (inst *Instance[T, PT]) Is(obj PT) bool {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return obj != nil && inst.state != stateNone && inst.obj == obj
}

// Destroy tear down the instance, Release() is called on it after it
// is detached from this accessor.
func (inst *Instance[T, PT]) Destroy() {
	inst.mu.Lock()
	if inst.state != stateReady {
		inst.mu.Unlock()
		panicerr("%v instance is not ready", inst.name)
	}
	obj := inst.obj
	inst.obj, inst.state = nil, stateNone
	inst.mu.Unlock()

	obj.Release()
}

func panicerr(fmsg string, args ...interface{}) {
	panic(fmt.Errorf(fmsg, args...))
}
