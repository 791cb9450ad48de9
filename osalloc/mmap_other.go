//go:build !unix

package osalloc

import "sync"
import "unsafe"

// without mmap the regions come from the Go heap, they are pinned here
// until unmapped so that addresses handed out stay valid.
var pinned sync.Map

func osmap(length int) ([]byte, error) {
	region := make([]byte, length)
	pinned.Store(uintptr(unsafe.Pointer(&region[0])), region)
	return region, nil
}

func osunmap(region []byte) error {
	pinned.Delete(uintptr(unsafe.Pointer(&region[0])))
	return nil
}
