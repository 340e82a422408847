package heap

import (
	"github.com/keyem4251/toyos/kernel"
	"github.com/keyem4251/toyos/kernel/sync"
)

// BumpAllocator hands out memory by moving a cursor forward. Individual
// blocks are never reused; the whole region becomes available again once
// every outstanding allocation has been released.
//
// BumpAllocator is not safe for concurrent use; wrap it in Locked.
type BumpAllocator struct {
	heapStart uintptr
	heapEnd   uintptr
	next      uintptr

	// allocations is the number of live allocations. The cursor is reset
	// once it drops to zero.
	allocations int
	initialized bool
}

// Init implements RegionAllocator.
func (b *BumpAllocator) Init(heapStart, heapSize uintptr) *kernel.Error {
	if b.initialized {
		return sync.ErrAlreadyInitialized
	}

	b.initialized = true
	b.heapStart = heapStart
	b.heapEnd = heapStart + heapSize
	b.next = heapStart
	return nil
}

// Alloc implements GlobalAllocator.
func (b *BumpAllocator) Alloc(layout Layout) uintptr {
	if !validAlign(layout.Align) {
		return 0
	}

	align := layout.Align
	if align == 0 {
		align = 1
	}

	allocStart := alignUp(b.next, align)
	allocEnd := allocStart + layout.Size
	if allocStart < b.next || allocEnd < allocStart || allocEnd > b.heapEnd {
		return 0
	}

	b.next = allocEnd
	b.allocations++
	return allocStart
}

// Dealloc implements GlobalAllocator.
func (b *BumpAllocator) Dealloc(_ uintptr, _ Layout) {
	if b.allocations == 0 {
		return
	}

	b.allocations--
	if b.allocations == 0 {
		b.next = b.heapStart
	}
}
