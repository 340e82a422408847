package heap

import (
	"github.com/keyem4251/toyos/kernel"
	"github.com/keyem4251/toyos/kernel/sync"
)

const (
	// nodeSize is the smallest block the free list can track: a node
	// record needs room for a size and a link.
	nodeSize = uintptr(16)

	// nodeAlign is the alignment of every free list node.
	nodeAlign = uintptr(8)

	noNode = -1
)

// listNode describes a free region. Nodes live in an arena and are linked by
// index; index 0 is the sentinel head whose size is always 0.
type listNode struct {
	start uintptr
	size  uintptr
	next  int
}

func (n *listNode) end() uintptr {
	return n.start + n.size
}

// Stats summarizes the state of the free list.
type Stats struct {
	// FreeBytes is the total size of all free regions.
	FreeBytes uintptr

	// FreeNodes is the number of free regions.
	FreeNodes int
}

// LinkedListAllocator is a first-fit allocator over a singly linked list of
// free regions. Freed blocks are pushed at the head of the list and adjacent
// free regions are never merged. When an allocation does not start at the
// beginning of the region it is carved from, the leading gap is not tracked.
//
// LinkedListAllocator is not safe for concurrent use; wrap it in Locked.
type LinkedListAllocator struct {
	nodes       []listNode
	freeSlots   []int
	initialized bool
}

// NewLinkedListAllocator returns an allocator with an empty free list.
func NewLinkedListAllocator() *LinkedListAllocator {
	return &LinkedListAllocator{
		nodes: []listNode{{next: noNode}},
	}
}

// Init adds the region [heapStart, heapStart+heapSize) to the free list.
func (a *LinkedListAllocator) Init(heapStart, heapSize uintptr) *kernel.Error {
	if a.initialized {
		return sync.ErrAlreadyInitialized
	}

	a.initialized = true
	a.addFreeRegion(heapStart, heapSize)
	return nil
}

// Alloc implements GlobalAllocator.
func (a *LinkedListAllocator) Alloc(layout Layout) uintptr {
	size, align, ok := sizeAlign(layout)
	if !ok {
		return 0
	}

	index, allocStart, found := a.findRegion(size, align)
	if !found {
		return 0
	}

	region := a.nodes[index]
	a.releaseNode(index)

	allocEnd := allocStart + size
	if excess := region.end() - allocEnd; excess > 0 {
		a.addFreeRegion(allocEnd, excess)
	}

	return allocStart
}

// Dealloc implements GlobalAllocator.
func (a *LinkedListAllocator) Dealloc(addr uintptr, layout Layout) {
	size, _, ok := sizeAlign(layout)
	if !ok || addr == 0 {
		return
	}

	a.addFreeRegion(addr, size)
}

// Stats walks the free list and reports its state.
func (a *LinkedListAllocator) Stats() Stats {
	var stats Stats
	for cur := a.nodes[0].next; cur != noNode; cur = a.nodes[cur].next {
		stats.FreeBytes += a.nodes[cur].size
		stats.FreeNodes++
	}
	return stats
}

// addFreeRegion pushes a node describing [addr, addr+size) at the head of
// the free list.
func (a *LinkedListAllocator) addFreeRegion(addr, size uintptr) {
	if alignUp(addr, nodeAlign) != addr || size < nodeSize {
		panic("heap: free region cannot hold a list node")
	}

	index := a.newNode(listNode{start: addr, size: size, next: a.nodes[0].next})
	a.nodes[0].next = index
}

// findRegion looks for the first free region that can hold size bytes at the
// requested alignment and unlinks it from the list.
func (a *LinkedListAllocator) findRegion(size, align uintptr) (int, uintptr, bool) {
	for prev, cur := 0, a.nodes[0].next; cur != noNode; prev, cur = cur, a.nodes[cur].next {
		if allocStart, ok := allocFromRegion(&a.nodes[cur], size, align); ok {
			a.nodes[prev].next = a.nodes[cur].next
			return cur, allocStart, true
		}
	}

	return noNode, 0, false
}

// allocFromRegion returns the aligned start address of an allocation of size
// bytes inside region. The region is rejected if it is too small or if the
// trailing leftover could not hold a node.
func allocFromRegion(region *listNode, size, align uintptr) (uintptr, bool) {
	allocStart := alignUp(region.start, align)
	allocEnd := allocStart + size
	if allocStart < region.start || allocEnd < allocStart || allocEnd > region.end() {
		return 0, false
	}

	if excess := region.end() - allocEnd; excess > 0 && excess < nodeSize {
		return 0, false
	}

	return allocStart, true
}

// sizeAlign adjusts a layout so the block it describes can later be turned
// back into a free list node. Alloc and Dealloc must round identically.
func sizeAlign(layout Layout) (uintptr, uintptr, bool) {
	if !validAlign(layout.Align) {
		return 0, 0, false
	}

	align := layout.Align
	if align < nodeAlign {
		align = nodeAlign
	}

	size := alignUp(layout.Size, align)
	if size < layout.Size {
		return 0, 0, false
	}
	if size < nodeSize {
		size = nodeSize
	}

	return size, align, true
}

func (a *LinkedListAllocator) newNode(node listNode) int {
	if n := len(a.freeSlots); n > 0 {
		index := a.freeSlots[n-1]
		a.freeSlots = a.freeSlots[:n-1]
		a.nodes[index] = node
		return index
	}

	a.nodes = append(a.nodes, node)
	return len(a.nodes) - 1
}

func (a *LinkedListAllocator) releaseNode(index int) {
	a.nodes[index] = listNode{next: noNode}
	a.freeSlots = append(a.freeSlots, index)
}
