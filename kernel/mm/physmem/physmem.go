// Package physmem emulates the machine's physical RAM for hosted kernel
// builds. The emulated RAM is a single block of memory outside the Go heap
// (an anonymous mapping where the platform supports it) so the kernel can
// keep raw pointers into it, exactly like it would with real memory accessed
// through the linear physical mapping.
package physmem

import (
	"unsafe"

	"github.com/keyem4251/toyos/kernel"
	"github.com/keyem4251/toyos/kernel/mm"
)

var (
	errInvalidSize = &kernel.Error{Module: "physmem", Message: "emulated RAM size must be at least one page"}
	errMapFailed   = &kernel.Error{Module: "physmem", Message: "unable to reserve host memory for emulated RAM"}
	errBusError    = &kernel.Error{Module: "physmem", Message: "access to non-existent physical address"}
)

// Memory is the emulated physical address space [0, Size()). It implements
// mm.PhysMap.
type Memory struct {
	data    []byte
	release func([]byte) error
}

// New reserves size bytes (rounded up to a page multiple) of zeroed
// emulated RAM.
func New(size uintptr) (*Memory, *kernel.Error) {
	if size < mm.PageSize {
		return nil, errInvalidSize
	}
	size = (size + mm.PageSize - 1) &^ (mm.PageSize - 1)

	data, release, err := allocate(size)
	if err != nil {
		return nil, errMapFailed
	}

	return &Memory{data: data, release: release}, nil
}

// Size returns the size of the emulated RAM in bytes.
func (m *Memory) Size() uintptr {
	return uintptr(len(m.data))
}

// Pointer implements mm.PhysMap. Accessing an address outside the emulated
// RAM is the equivalent of a bus error and panics.
func (m *Memory) Pointer(physAddr uintptr) unsafe.Pointer {
	if physAddr >= uintptr(len(m.data)) {
		panic(errBusError)
	}
	return unsafe.Pointer(&m.data[physAddr])
}

// Bytes returns a slice aliasing size bytes of emulated RAM at physAddr.
func (m *Memory) Bytes(physAddr, size uintptr) []byte {
	if physAddr+size > uintptr(len(m.data)) || physAddr+size < physAddr {
		panic(errBusError)
	}
	return m.data[physAddr : physAddr+size : physAddr+size]
}

// Close returns the emulated RAM to the host. Pointers obtained from the
// Memory must not be used afterwards.
func (m *Memory) Close() error {
	if m.data == nil {
		return nil
	}

	data := m.data
	m.data = nil
	return m.release(data)
}
