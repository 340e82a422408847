//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package physmem

import (
	"golang.org/x/sys/unix"
)

// allocate backs the emulated RAM with an anonymous private mapping. The
// kernel zero-fills it and the Go garbage collector never scans or moves it.
func allocate(size uintptr) ([]byte, func([]byte) error, error) {
	data, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, err
	}

	return data, unix.Munmap, nil
}
