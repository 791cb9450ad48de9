//go:build unix

package osalloc

import "golang.org/x/sys/unix"

func osmap(length int) ([]byte, error) {
	prot := unix.PROT_READ | unix.PROT_WRITE
	flags := unix.MAP_ANON | unix.MAP_PRIVATE
	return unix.Mmap(-1, 0, length, prot, flags)
}

func osunmap(region []byte) error {
	return unix.Munmap(region)
}
