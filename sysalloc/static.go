package sysalloc

import "sync"

import "github.com/bnclabs/goalloc/malloc"

// systemSchema storage for the root allocator's heap schema.
var systemSchema struct {
	mu    sync.Mutex
	used  bool
	arena malloc.Arena
}

// BindSystemSchema construct heap schema in place inside the static
// storage. Binding while a schema is already bound panics.
func BindSystemSchema(desc malloc.Descriptor) (*malloc.Arena, error) {
	systemSchema.mu.Lock()
	defer systemSchema.mu.Unlock()

	if systemSchema.used {
		panicerr("system schema is already bound")
	}
	if err := systemSchema.arena.Init(desc); err != nil {
		return nil, err
	}
	systemSchema.used = true
	return &systemSchema.arena, nil
}

// UnbindSystemSchema tear down the bound schema in place.
func UnbindSystemSchema() {
	systemSchema.mu.Lock()
	defer systemSchema.mu.Unlock()

	if !systemSchema.used {
		panicerr("system schema is not bound")
	}
	systemSchema.arena.Release()
	systemSchema.used = false
}

// IsSystemSchemaBound return true if static storage is occupied.
func IsSystemSchemaBound() bool {
	systemSchema.mu.Lock()
	defer systemSchema.mu.Unlock()
	return systemSchema.used
}
