package osalloc

import "os"

import "github.com/cloudfoundry/gosigar"

// Pagesize return the operating system's page size.
func Pagesize() int64 {
	return int64(os.Getpagesize())
}

// Sysmem return total, used and free system memory in bytes. On
// platforms where memory statistics are not available all three are 0.
func Sysmem() (total, used, free uint64) {
	mem := sigar.Mem{}
	if err := mem.Get(); err != nil {
		warnf("osalloc: system memory: %v\n", err)
		return 0, 0, 0
	}
	return mem.Total, mem.Used, mem.ActualFree
}
