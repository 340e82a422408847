// Package heap implements the kernel heap: a fixed virtual window that is
// mapped at boot and carved up by a first-fit free-list allocator. A bump
// allocator is kept as a simpler alternative strategy.
package heap

import (
	"github.com/keyem4251/toyos/kernel"
)

const (
	// Start is the virtual address of the kernel heap window.
	Start = uintptr(0x4444_4444_0000)

	// Size is the length of the kernel heap window in bytes.
	Size = uintptr(100 * 1024)
)

var (
	// ErrOutOfMemory is returned when no free region can satisfy an
	// allocation request.
	ErrOutOfMemory = &kernel.Error{Module: "heap", Message: "out of memory"}
)

// Layout describes the size and alignment of an allocation. Align must be a
// power of two; zero is treated as 1.
type Layout struct {
	Size  uintptr
	Align uintptr
}

// GlobalAllocator is implemented by heap allocators. Alloc returns the start
// address of the allocated block or 0 if the request cannot be satisfied.
// Dealloc must be invoked with the same layout that was passed to Alloc.
type GlobalAllocator interface {
	Alloc(layout Layout) uintptr
	Dealloc(addr uintptr, layout Layout)
}

// RegionAllocator is a GlobalAllocator that manages a caller-supplied region.
type RegionAllocator interface {
	GlobalAllocator

	// Init hands the region [heapStart, heapStart+heapSize) to the
	// allocator. Calls after the first one return
	// sync.ErrAlreadyInitialized and leave the allocator untouched.
	Init(heapStart, heapSize uintptr) *kernel.Error
}

// alignUp rounds addr up to the next multiple of align, which must be a power
// of two.
func alignUp(addr, align uintptr) uintptr {
	return (addr + align - 1) &^ (align - 1)
}

// validAlign reports whether align is zero or a power of two.
func validAlign(align uintptr) bool {
	return align&(align-1) == 0
}
