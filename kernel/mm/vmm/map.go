package vmm

import (
	"github.com/keyem4251/toyos/kernel"
	"github.com/keyem4251/toyos/kernel/mm"
)

var (
	// ErrPageAlreadyMapped is returned by Map when the target page is
	// already present. Existing mappings are never overwritten.
	ErrPageAlreadyMapped = &kernel.Error{Module: "vmm", Message: "page is already mapped"}

	// ErrFrameAllocationFailed is returned by Map when a frame for a
	// missing intermediate page table cannot be obtained.
	ErrFrameAllocationFailed = &kernel.Error{Module: "vmm", Message: "unable to allocate frame for page table"}

	errNoHugePageSupport = &kernel.Error{Module: "vmm", Message: "huge pages are not supported"}
)

// Map establishes a mapping between a virtual page and a physical memory
// frame. Missing intermediate page tables are backed by frames obtained from
// frames and cleared before use. The TLB entry for page is flushed once the
// leaf entry is installed.
func (w *Walker) Map(page mm.Page, frame mm.Frame, flags PageTableEntryFlag, frames mm.FrameAllocator) *kernel.Error {
	var err *kernel.Error

	w.walk(page.Address(), func(pteLevel uint8, pte *pageTableEntry) bool {
		// If we reached the last level all we need to do is to map the
		// frame in place and flag it as present and flush its TLB entry
		if pteLevel == pageLevels-1 {
			if pte.HasFlags(FlagPresent) {
				err = ErrPageAlreadyMapped
				return false
			}

			*pte = 0
			pte.SetFrame(frame)
			pte.SetFlags(flags)
			w.proc.FlushTLBEntry(page.Address())
			return true
		}

		if pte.HasFlags(FlagHugePage) {
			err = errNoHugePageSupport
			return false
		}

		// Next table does not yet exist; we need to allocate a
		// physical frame for it and clear its contents.
		if !pte.HasFlags(FlagPresent) {
			newTableFrame, allocErr := frames.AllocFrame()
			if allocErr != nil {
				err = ErrFrameAllocationFailed
				return false
			}

			mm.Memset(w.physMap.Pointer(newTableFrame.Address()), 0, mm.PageSize)

			*pte = 0
			pte.SetFrame(newTableFrame)
			pte.SetFlags(FlagPresent | FlagRW)
		}

		return true
	})

	return err
}

// Unmap removes a mapping previously installed via a call to Map. The frame
// that backed the page is not returned to any allocator.
func (w *Walker) Unmap(page mm.Page) *kernel.Error {
	var err *kernel.Error

	w.walk(page.Address(), func(pteLevel uint8, pte *pageTableEntry) bool {
		// Missing table or leaf entry; this is an invalid mapping
		if !pte.HasFlags(FlagPresent) {
			err = ErrInvalidMapping
			return false
		}

		// If we reached the last level all we need to do is to set the
		// page as non-present and flush its TLB entry
		if pteLevel == pageLevels-1 {
			pte.ClearFlags(FlagPresent)
			w.proc.FlushTLBEntry(page.Address())
			return true
		}

		if pte.HasFlags(FlagHugePage) {
			err = errNoHugePageSupport
			return false
		}

		return true
	})

	return err
}

// MapExample maps page to the frame holding the VGA text buffer so that
// writes through page land in video memory.
func (w *Walker) MapExample(page mm.Page, frames mm.FrameAllocator) *kernel.Error {
	return w.Map(page, mm.FrameFromAddress(VgaTextBufferAddr), FlagPresent|FlagRW, frames)
}
