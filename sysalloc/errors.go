package sysalloc

import "fmt"

import "github.com/bnclabs/goalloc/malloc"

// AllocationError unrecoverable allocation failure, carries the
// original request.
type AllocationError struct {
	Size      int64
	Alignment int64
	Flags     int
	Name      string
	File      string
	Line      int
}

func (err *AllocationError) Error() string {
	fmsg := "SystemAllocator: Failed to allocate %d bytes aligned on %d " +
		"(flags: 0x%08x) %s : %s (%d)!"
	name, file := err.Name, err.File
	if name == "" {
		name = "(no name)"
	}
	if file == "" {
		file = "(no file name)"
	}
	return fmt.Sprintf(
		fmsg, err.Size, err.Alignment, err.Flags, name, file, err.Line)
}

// Unwrap return malloc.ErrorOutofMemory.
func (err *AllocationError) Unwrap() error {
	return malloc.ErrorOutofMemory
}

func panicerr(fmsg string, args ...interface{}) {
	panic(fmt.Errorf(fmsg, args...))
}
