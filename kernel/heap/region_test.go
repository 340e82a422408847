package heap

import (
	"testing"

	"github.com/keyem4251/toyos/kernel"
	"github.com/keyem4251/toyos/kernel/cpu"
	"github.com/keyem4251/toyos/kernel/gate"
	"github.com/keyem4251/toyos/kernel/hal/multiboot"
	"github.com/keyem4251/toyos/kernel/mm"
	"github.com/keyem4251/toyos/kernel/mm/physmem"
	"github.com/keyem4251/toyos/kernel/mm/pmm"
	"github.com/keyem4251/toyos/kernel/mm/vmm"
	"github.com/keyem4251/toyos/kernel/sync"
	"github.com/stretchr/testify/require"
)

func newTestWalker(t *testing.T) (*vmm.Walker, *pmm.BootMemAllocator) {
	ram, err := physmem.New(2 * uintptr(mm.Mb))
	require.Nil(t, err)
	t.Cleanup(func() { _ = ram.Close() })

	walker, err := vmm.NewWalker(cpu.NewEmulator(0x1000, &gate.Table{}), ram)
	require.Nil(t, err)
	t.Cleanup(walker.Release)

	frames := pmm.NewBootMemAllocator(multiboot.MemoryMap{
		{PhysAddress: 0, Length: 0x2000, Type: multiboot.MemReserved},
		{PhysAddress: 0x2000, Length: 2*uint64(mm.Mb) - 0x2000, Type: multiboot.MemAvailable},
	})
	return walker, frames
}

func TestRegionInit(t *testing.T) {
	walker, frames := newTestWalker(t)

	var (
		region = NewRegion(Start, Size)
		alloc  = NewLinkedListAllocator()
	)
	require.Nil(t, region.Init(walker, frames, alloc))

	// Every page of the window is backed by a distinct frame
	seen := make(map[uintptr]struct{})
	for addr := Start; addr < Start+Size; addr += mm.PageSize {
		physAddr, err := walker.Translate(addr)
		require.Nil(t, err)
		_, dup := seen[physAddr]
		require.False(t, dup)
		seen[physAddr] = struct{}{}
	}
	require.Len(t, seen, 25)

	_, err := walker.Translate(Start + Size)
	require.Equal(t, vmm.ErrInvalidMapping, err)

	require.Equal(t, Stats{FreeBytes: Size, FreeNodes: 1}, alloc.Stats())

	// The window can only be initialized once
	require.Equal(t, sync.ErrAlreadyInitialized, region.Init(walker, frames, NewLinkedListAllocator()))
	require.Equal(t, Stats{FreeBytes: Size, FreeNodes: 1}, alloc.Stats())
}

func TestRegionInitOutOfFrames(t *testing.T) {
	walker, _ := newTestWalker(t)

	var (
		region    = NewRegion(Start, Size)
		alloc     = NewLinkedListAllocator()
		remaining = 10
	)

	frames := mm.FrameAllocatorFn(func() (mm.Frame, *kernel.Error) {
		if remaining == 0 {
			return mm.InvalidFrame, pmm.ErrOutOfMemory
		}
		remaining--
		return mm.Frame(0x100 + remaining), nil
	})

	require.Equal(t, vmm.ErrFrameAllocationFailed, region.Init(walker, frames, alloc))
	require.Equal(t, Stats{}, alloc.Stats(), "allocator must not be handed a partially mapped heap")

	// A failed Init still consumes the region
	require.Equal(t, sync.ErrAlreadyInitialized, region.Init(walker, frames, alloc))
}

func TestAllocatorInitOnlyOnce(t *testing.T) {
	t.Run("linked list", func(t *testing.T) {
		alloc := NewLocked(NewLinkedListAllocator())
		require.Nil(t, alloc.Init(Start, 4096))
		require.Equal(t, sync.ErrAlreadyInitialized, alloc.Init(Start, 4096))

		// The second Init must not hand out the same memory twice
		first := alloc.Alloc(Layout{Size: 4096, Align: 8})
		require.Equal(t, Start, first)
		require.Zero(t, alloc.Alloc(Layout{Size: 4096, Align: 8}))
	})

	t.Run("bump", func(t *testing.T) {
		alloc := NewLocked(&BumpAllocator{})
		require.Nil(t, alloc.Init(Start, 64))
		first := alloc.Alloc(Layout{Size: 32, Align: 8})

		// The cursor is not reset by a second Init
		require.Equal(t, sync.ErrAlreadyInitialized, alloc.Init(Start, 64))
		require.Equal(t, first+32, alloc.Alloc(Layout{Size: 32, Align: 8}))
	})

	t.Run("region", func(t *testing.T) {
		walker, frames := newTestWalker(t)

		alloc := NewLinkedListAllocator()
		require.Nil(t, alloc.Init(Start, 4096))
		require.Equal(t, sync.ErrAlreadyInitialized, NewRegion(Start, Size).Init(walker, frames, alloc))
		require.Equal(t, Stats{FreeBytes: 4096, FreeNodes: 1}, alloc.Stats())
	})
}

func TestAllocate(t *testing.T) {
	walker, frames := newTestWalker(t)

	alloc := NewLocked(NewLinkedListAllocator())
	require.Nil(t, NewRegion(Start, Size).Init(walker, frames, alloc))

	// Spans a page boundary
	layout := Layout{Size: 6000, Align: 8}
	backing, err := Allocate(alloc, walker, layout)
	require.Nil(t, err)
	require.Equal(t, uintptr(6000), backing.Size())

	for off := uintptr(0); off < backing.Size(); off += 8 {
		*(*uint64)(backing.Pointer(off)) = uint64(off)
	}
	for off := uintptr(0); off < backing.Size(); off += 8 {
		require.Equal(t, uint64(off), *(*uint64)(backing.Pointer(off)))
	}

	_, err = Allocate(alloc, walker, Layout{Size: Size, Align: 8})
	require.Equal(t, ErrOutOfMemory, err)
}

func TestBumpAllocatorOverRegion(t *testing.T) {
	walker, frames := newTestWalker(t)

	alloc := NewLocked(&BumpAllocator{})
	require.Nil(t, NewRegion(Start, Size).Init(walker, frames, alloc))

	backing, err := Allocate(alloc, walker, Layout{Size: 64, Align: 8})
	require.Nil(t, err)
	*(*uint32)(backing.Pointer(60)) = 0xcafebabe
	require.Equal(t, uint32(0xcafebabe), *(*uint32)(backing.Pointer(60)))
}
