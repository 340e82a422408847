// Package vmm manipulates the 4-level amd64 page tables of the active address
// space. All page table memory is reached through a linear physical mapping
// (mm.PhysMap) instead of a recursive mapping.
package vmm

import (
	"github.com/keyem4251/toyos/kernel"
	"github.com/keyem4251/toyos/kernel/cpu"
	"github.com/keyem4251/toyos/kernel/mm"
	"github.com/keyem4251/toyos/kernel/sync"
)

var (
	// ErrAddressSpaceClaimed is returned by NewWalker when another Walker
	// already owns the page tables of the active address space.
	ErrAddressSpaceClaimed = &kernel.Error{Module: "vmm", Message: "address space is already owned by a page table walker"}

	// claims holds the host address of every top-level table owned by a
	// Walker. Two walkers alias the same table memory exactly when these
	// addresses are equal, whatever PhysMap they were created with.
	claimLock sync.Spinlock
	claims    = make(map[uintptr]struct{})
)

// pageTableWalker is a function that can be passed to the walk method. The
// function receives the current page level and page table entry as its
// arguments.  If the function returns false, then the page walk is aborted.
type pageTableWalker func(pteLevel uint8, pte *pageTableEntry) bool

// Walker is the sole owner of the page tables of one address space. It is
// created with NewWalker, which refuses to hand out a second Walker for the
// same tables until the first one is released, so two walkers can never
// modify the same table memory.
//
// Walker is not safe for concurrent use.
type Walker struct {
	proc    cpu.Processor
	physMap mm.PhysMap
	pdt     mm.Frame
	claim   uintptr
}

// NewWalker claims the address space whose top-level table is currently
// active on proc. The page tables are accessed through physMap, which must
// map the entire physical address space.
func NewWalker(proc cpu.Processor, physMap mm.PhysMap) (*Walker, *kernel.Error) {
	pdt := mm.FrameFromAddress(proc.ActivePDT())
	claim := uintptr(physMap.Pointer(pdt.Address()))

	claimLock.Acquire()
	defer claimLock.Release()

	if _, taken := claims[claim]; taken {
		return nil, ErrAddressSpaceClaimed
	}
	claims[claim] = struct{}{}

	return &Walker{proc: proc, physMap: physMap, pdt: pdt, claim: claim}, nil
}

// Release gives up ownership of the address space. The Walker must not be
// used after a call to Release.
func (w *Walker) Release() {
	claimLock.Acquire()
	delete(claims, w.claim)
	claimLock.Release()
}

// PDT returns the frame that holds the top-level page table.
func (w *Walker) PDT() mm.Frame {
	return w.pdt
}

// walk performs a page table walk for the given virtual address. It calls the
// supplied walkFn with the page table entry that corresponds to each page
// table level. If walkFn returns false the walk is aborted. The table for the
// next level is located via the frame stored in the entry after walkFn
// returns, so walkFn may install a missing table.
func (w *Walker) walk(virtAddr uintptr, walkFn pageTableWalker) {
	tableAddr := w.pdt.Address()

	for level := uint8(0); level < pageLevels; level++ {
		// Extract the bits from virtual address that correspond to the
		// index in this level's page table
		entryIndex := (virtAddr >> pageLevelShifts[level]) & ((1 << pageLevelBits[level]) - 1)
		pte := (*pageTableEntry)(w.physMap.Pointer(tableAddr + (entryIndex << mm.PointerShift)))

		if !walkFn(level, pte) {
			return
		}

		tableAddr = pte.Frame().Address()
	}
}
