//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package physmem

// allocate falls back to a heap allocated buffer on platforms without
// anonymous mappings. Heap objects are never moved by the collector so
// pointers into the buffer remain valid while the Memory is alive.
func allocate(size uintptr) ([]byte, func([]byte) error, error) {
	return make([]byte, size), func([]byte) error { return nil }, nil
}
