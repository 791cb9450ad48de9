//go:build debug

package malloc

import "unsafe"

import "github.com/bnclabs/goalloc/lib"

// fresh blocks are poisoned to catch reads of uninitialized memory.
func initblock(ptr unsafe.Pointer, size int64) {
	lib.Memset(ptr, 0xff, int(size))
}
