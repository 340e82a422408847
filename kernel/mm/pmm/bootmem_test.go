package pmm

import (
	"bytes"
	"testing"

	"github.com/keyem4251/toyos/kernel/hal/multiboot"
	"github.com/keyem4251/toyos/kernel/kfmt"
	"github.com/keyem4251/toyos/kernel/mm"
	"github.com/stretchr/testify/require"
)

// qemuMemoryMap is the memory map reported by qemu for a 128M machine:
// [     0 -   9fc00] length:    654336
// [100000 - 7fe0000] length: 133038080
var qemuMemoryMap = multiboot.MemoryMap{
	{PhysAddress: 0x0, Length: 0x9fc00, Type: multiboot.MemAvailable},
	{PhysAddress: 0x9fc00, Length: 0x400, Type: multiboot.MemReserved},
	{PhysAddress: 0xf0000, Length: 0x10000, Type: multiboot.MemReserved},
	{PhysAddress: 0x100000, Length: 0x7ee0000, Type: multiboot.MemAvailable},
	{PhysAddress: 0x7fe0000, Length: 0x20000, Type: multiboot.MemReserved},
	{PhysAddress: 0xfffc0000, Length: 0x40000, Type: multiboot.MemReserved},
}

func TestBootMemoryAllocator(t *testing.T) {
	alloc := NewBootMemAllocator(qemuMemoryMap)
	require.Equal(t, uint64(159+32480), alloc.FreeFrames())

	var (
		expFrame  = mm.Frame(0)
		seen      = make(map[mm.Frame]struct{})
		lastFrame mm.Frame
	)

	for {
		frame, err := alloc.AllocFrame()
		if err != nil {
			require.Equal(t, ErrOutOfMemory, err)
			require.Equal(t, mm.InvalidFrame, frame)
			break
		}

		require.True(t, frame.Valid())
		require.Equal(t, expFrame, frame, "frames must be handed out in map order")

		_, dup := seen[frame]
		require.False(t, dup, "frame %d handed out twice", frame)
		seen[frame] = struct{}{}
		lastFrame = frame

		// region 1 extents get rounded to [0, 9f000] and provides 159 frames [0 to 158]
		// region 4 uses the original extents [100000 - 7fe0000] and provides 32480 frames [256-32735]
		expFrame++
		if expFrame == 159 {
			expFrame = 256
		}
	}

	require.Equal(t, uint64(159+32480), alloc.AllocCount())
	require.Equal(t, uint64(0), alloc.FreeFrames())
	require.Equal(t, mm.Frame(32735), lastFrame)

	// Exhaustion is sticky; the cursor never moves backwards
	_, err := alloc.AllocFrame()
	require.Equal(t, ErrOutOfMemory, err)
	require.Equal(t, uint64(159+32480), alloc.AllocCount())
}

func TestBootMemoryAllocatorUnalignedRegions(t *testing.T) {
	alloc := NewBootMemAllocator(multiboot.MemoryMap{
		// Rounded to [0x2000, 0x3000): a single frame
		{PhysAddress: 0x1800, Length: 0x2000, Type: multiboot.MemAvailable},
		// Smaller than a page
		{PhysAddress: 0x5000, Length: 0x800, Type: multiboot.MemAvailable},
		// Larger than a page but does not contain a whole frame
		{PhysAddress: 0x6800, Length: 0x1000, Type: multiboot.MemAvailable},
		{PhysAddress: 0x8000, Length: 0x2000, Type: multiboot.MemReserved},
		{PhysAddress: 0xa000, Length: 0x2000, Type: multiboot.MemAvailable},
	})

	var frames []mm.Frame
	for {
		frame, err := alloc.AllocFrame()
		if err != nil {
			break
		}
		frames = append(frames, frame)
	}

	require.Equal(t, []mm.Frame{2, 0xa, 0xb}, frames)
}

func TestEmptyFrameAllocator(t *testing.T) {
	var alloc mm.FrameAllocator = EmptyFrameAllocator{}
	frame, err := alloc.AllocFrame()
	require.Equal(t, mm.InvalidFrame, frame)
	require.Equal(t, ErrOutOfMemory, err)
}

func TestPrintMemoryMap(t *testing.T) {
	var buf bytes.Buffer
	kfmt.SetOutputSink(&buf)
	defer kfmt.SetOutputSink(nil)

	NewBootMemAllocator(qemuMemoryMap).PrintMemoryMap()

	out := buf.String()
	require.Contains(t, out, "[boot_mem_alloc] system memory map:\n")
	require.Contains(t, out, "[0x0000100000 - 0x0007fe0000], size:  133038080, type: available")
	require.Contains(t, out, "type: reserved")
	require.Contains(t, out, "[boot_mem_alloc] available memory: 130556Kb\n")
}
