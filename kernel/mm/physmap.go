package mm

import (
	"unsafe"
)

// PhysMap gives the kernel access to physical memory. The whole physical
// address space is assumed to be linearly mapped into the virtual address
// space so every physical address has a fixed, directly usable alias.
type PhysMap interface {
	// Pointer returns the virtual alias for physAddr.
	Pointer(physAddr uintptr) unsafe.Pointer
}

// OffsetMap is the PhysMap used when the bootloader has mapped all physical
// memory starting at a fixed virtual offset.
type OffsetMap uintptr

// Pointer implements PhysMap.
func (o OffsetMap) Pointer(physAddr uintptr) unsafe.Pointer {
	return unsafe.Pointer(uintptr(o) + physAddr)
}

// Backing exposes the storage behind a virtually contiguous block of memory
// (for example a heap allocation) whose pages are not necessarily backed by
// physically contiguous frames.
type Backing interface {
	// Size returns the usable size of the block in bytes.
	Size() uintptr

	// Pointer returns a pointer to the byte at offset. Callers must keep
	// offset < Size(); multi-byte accesses must not straddle a page
	// boundary unless the block is known to be contiguous.
	Pointer(offset uintptr) unsafe.Pointer
}

// sliceBacking is a Backing carved out of memory owned by the Go runtime. It
// is used for structures created before the kernel heap is available.
type sliceBacking struct {
	words []uint64
	size  uintptr
}

// NewSliceBacking returns a contiguous, 8-byte aligned Backing of at least
// size bytes.
func NewSliceBacking(size uintptr) Backing {
	return &sliceBacking{
		words: make([]uint64, (size+7)>>PointerShift+1),
		size:  size,
	}
}

func (b *sliceBacking) Size() uintptr { return b.size }

func (b *sliceBacking) Pointer(offset uintptr) unsafe.Pointer {
	if offset >= b.size {
		panic("mm: backing offset out of range")
	}
	return unsafe.Add(unsafe.Pointer(&b.words[0]), offset)
}

// Memset sets size bytes starting at ptr to the supplied value. The
// implementation uses log2(size) copy calls instead of a byte loop.
func Memset(ptr unsafe.Pointer, value byte, size uintptr) {
	if size == 0 {
		return
	}

	target := unsafe.Slice((*byte)(ptr), size)

	// Set first element and make log2(size) optimized copies
	target[0] = value
	for index := uintptr(1); index < size; index *= 2 {
		copy(target[index:], target[:index])
	}
}
