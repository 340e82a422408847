package heap

import (
	"sync/atomic"

	"github.com/keyem4251/toyos/kernel"
	"github.com/keyem4251/toyos/kernel/mm"
	"github.com/keyem4251/toyos/kernel/mm/vmm"
	"github.com/keyem4251/toyos/kernel/sync"
)

// Mapper installs virtual to physical mappings. It is implemented by
// *vmm.Walker.
type Mapper interface {
	Map(page mm.Page, frame mm.Frame, flags vmm.PageTableEntryFlag, frames mm.FrameAllocator) *kernel.Error
}

// Resolver gives access to the memory behind a mapped virtual range. It is
// implemented by *vmm.Walker.
type Resolver interface {
	Resolve(virtAddr, size uintptr) (mm.Backing, *kernel.Error)
}

// Region is a virtual address window reserved for a heap. It can be
// initialized only once; the first successful or failed Init consumes it.
type Region struct {
	start uintptr
	size  uintptr
	used  uint32
}

// NewRegion returns the heap window [start, start+size).
func NewRegion(start, size uintptr) *Region {
	return &Region{start: start, size: size}
}

// Bounds returns the start address and size of the window.
func (r *Region) Bounds() (uintptr, uintptr) {
	return r.start, r.size
}

// Init maps every page of the window to a fresh frame with present and
// writable flags and then hands the window to alloc. Init returns
// sync.ErrAlreadyInitialized if the region or alloc was already used and the
// mapping error if any page could not be mapped, in which case alloc is left
// untouched.
func (r *Region) Init(mapper Mapper, frames mm.FrameAllocator, alloc RegionAllocator) *kernel.Error {
	if !atomic.CompareAndSwapUint32(&r.used, 0, 1) {
		return sync.ErrAlreadyInitialized
	}

	firstPage, lastPage := mm.PageRange(r.start, r.size)
	for page := firstPage; page <= lastPage; page++ {
		frame, err := frames.AllocFrame()
		if err != nil {
			return vmm.ErrFrameAllocationFailed
		}

		if err = mapper.Map(page, frame, vmm.FlagPresent|vmm.FlagRW, frames); err != nil {
			return err
		}
	}

	return alloc.Init(r.start, r.size)
}

// Allocate reserves a block described by layout and returns a Backing for
// its contents. It returns ErrOutOfMemory if alloc cannot satisfy the
// request.
func Allocate(alloc GlobalAllocator, resolver Resolver, layout Layout) (mm.Backing, *kernel.Error) {
	addr := alloc.Alloc(layout)
	if addr == 0 {
		return nil, ErrOutOfMemory
	}

	backing, err := resolver.Resolve(addr, layout.Size)
	if err != nil {
		alloc.Dealloc(addr, layout)
		return nil, err
	}

	return backing, nil
}
