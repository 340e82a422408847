package vmm

import (
	"unsafe"

	"github.com/keyem4251/toyos/kernel"
	"github.com/keyem4251/toyos/kernel/mm"
)

var errBackingOutOfRange = &kernel.Error{Module: "vmm", Message: "offset is outside the resolved region"}

// Resolve translates every page of the virtual region [virtAddr,
// virtAddr+size) and returns an mm.Backing that reaches the region's contents
// through the physical mapping. It returns ErrInvalidMapping if any page of
// the region is not mapped.
//
// The returned Backing captures the translations at the time of the call;
// it must not be used after the region is unmapped.
func (w *Walker) Resolve(virtAddr, size uintptr) (mm.Backing, *kernel.Error) {
	if size == 0 {
		return nil, ErrInvalidMapping
	}

	firstPage, lastPage := mm.PageRange(virtAddr, size)
	frames := make([]uintptr, 0, lastPage-firstPage+1)
	for page := firstPage; page <= lastPage; page++ {
		physAddr, err := w.Translate(page.Address())
		if err != nil {
			return nil, err
		}
		frames = append(frames, physAddr)
	}

	return &pagedBacking{
		physMap:  w.physMap,
		frames:   frames,
		startOff: PageOffset(virtAddr),
		size:     size,
	}, nil
}

// pagedBacking is a virtually contiguous region whose pages may live in
// arbitrary physical frames.
type pagedBacking struct {
	physMap mm.PhysMap

	// frames holds the physical address of every page in the region.
	frames []uintptr

	// startOff is the offset of the region start within its first page.
	startOff uintptr
	size     uintptr
}

func (b *pagedBacking) Size() uintptr { return b.size }

func (b *pagedBacking) Pointer(offset uintptr) unsafe.Pointer {
	if offset >= b.size {
		panic(errBackingOutOfRange)
	}

	offset += b.startOff
	return b.physMap.Pointer(b.frames[offset>>mm.PageShift] + offset&(mm.PageSize-1))
}
