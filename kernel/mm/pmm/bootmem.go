// Package pmm contains the physical memory manager: the frame sources that
// hand out physical frames described by the bootloader's memory map.
package pmm

import (
	"github.com/keyem4251/toyos/kernel"
	"github.com/keyem4251/toyos/kernel/hal/multiboot"
	"github.com/keyem4251/toyos/kernel/kfmt"
	"github.com/keyem4251/toyos/kernel/mm"
)

var (
	// ErrOutOfMemory is returned once every usable frame has been handed
	// out. It is the only physical memory exhaustion signal in the kernel.
	ErrOutOfMemory = &kernel.Error{Module: "boot_mem_alloc", Message: "out of memory"}
)

// BootMemAllocator implements a rudimentary physical memory allocator.
//
// The allocator uses the memory region information provided by the
// bootloader to detect free memory blocks and return the next available free
// frame. Allocations are tracked via an internal counter that contains the
// number of frames handed out so far; each call re-scans the memory map from
// the start and skips that many usable frames. No free-frame set is kept and,
// as a consequence, allocated frames can never be freed.
//
// BootMemAllocator is not safe for concurrent use.
type BootMemAllocator struct {
	memMap multiboot.MemoryMap

	// allocCount tracks the total number of allocated frames.
	allocCount uint64
}

// NewBootMemAllocator returns an allocator for the usable regions in memMap.
func NewBootMemAllocator(memMap multiboot.MemoryMap) *BootMemAllocator {
	return &BootMemAllocator{memMap: memMap}
}

// AllocFrame scans the system memory regions reported by the bootloader and
// reserves the next available free frame.
//
// AllocFrame returns ErrOutOfMemory if no more memory can be allocated.
func (alloc *BootMemAllocator) AllocFrame() (mm.Frame, *kernel.Error) {
	var (
		skip  = alloc.allocCount
		frame = mm.InvalidFrame
	)

	alloc.memMap.VisitMemRegions(func(region *multiboot.MemoryMapEntry) bool {
		startFrame, frameCount := UsableFrames(region)
		if skip >= frameCount {
			skip -= frameCount
			return true
		}

		frame = startFrame + mm.Frame(skip)
		return false
	})

	if !frame.Valid() {
		return mm.InvalidFrame, ErrOutOfMemory
	}

	alloc.allocCount++
	return frame, nil
}

// AllocCount returns the number of frames handed out so far.
func (alloc *BootMemAllocator) AllocCount() uint64 {
	return alloc.allocCount
}

// FreeFrames returns the number of frames that can still be allocated.
func (alloc *BootMemAllocator) FreeFrames() uint64 {
	var total uint64
	alloc.memMap.VisitMemRegions(func(region *multiboot.MemoryMapEntry) bool {
		_, frameCount := UsableFrames(region)
		total += frameCount
		return true
	})
	return total - alloc.allocCount
}

// UsableFrames returns the first frame and the number of whole frames
// contained in region. Reserved regions contain no usable frames.
func UsableFrames(region *multiboot.MemoryMapEntry) (mm.Frame, uint64) {
	if region.Type != multiboot.MemAvailable || region.Length < uint64(mm.PageSize) {
		return 0, 0
	}

	// Reported addresses may not be page-aligned; round up to get
	// the start frame and round down to get the end frame
	pageSizeMinus1 := uint64(mm.PageSize - 1)
	regionStart := (region.PhysAddress + pageSizeMinus1) &^ pageSizeMinus1
	regionEnd := region.End() &^ pageSizeMinus1
	if regionEnd <= regionStart {
		return 0, 0
	}

	return mm.Frame(regionStart >> mm.PageShift), (regionEnd - regionStart) >> mm.PageShift
}

// PrintMemoryMap scans the memory region information provided by the
// bootloader and prints out the system's memory map.
func (alloc *BootMemAllocator) PrintMemoryMap() {
	var totalFree mm.Size

	kfmt.Printf("[boot_mem_alloc] system memory map:\n")
	alloc.memMap.VisitMemRegions(func(region *multiboot.MemoryMapEntry) bool {
		kfmt.Printf("\t[0x%010x - 0x%010x], size: %10d, type: %s\n", region.PhysAddress, region.End(), region.Length, region.Type.String())

		_, frameCount := UsableFrames(region)
		totalFree += mm.Size(frameCount) * mm.Size(mm.PageSize)
		return true
	})
	kfmt.Printf("[boot_mem_alloc] available memory: %dKb\n", uint64(totalFree/mm.Kb))
}

// EmptyFrameAllocator is a frame source that never has a frame to give.
type EmptyFrameAllocator struct{}

// AllocFrame implements mm.FrameAllocator.
func (EmptyFrameAllocator) AllocFrame() (mm.Frame, *kernel.Error) {
	return mm.InvalidFrame, ErrOutOfMemory
}
