package multiboot

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMemoryMap(t *testing.T) {
	memMap, err := Parse(multibootMemoryMap)
	require.Nil(t, err)

	exp := MemoryMap{
		{0x0, 0x9fc00, MemAvailable},
		{0x9fc00, 0x400, MemReserved},
		{0xf0000, 0x10000, MemReserved},
		{0x100000, 0x7ee0000, MemAvailable},
		{0x7fe0000, 0x20000, MemReserved},
		{0xfffc0000, 0x40000, MemReserved},
	}
	require.Equal(t, exp, memMap)
	require.Equal(t, uint64(0x7fe0000), memMap[3].End())
}

func TestParseUnknownEntryTypes(t *testing.T) {
	info := append([]byte(nil), multibootMemoryMap...)

	// Patch the type of the first and second entries with invalid values
	firstEntryType := infoHeaderSize + tagHeaderSize + mmapHeaderSize + 16
	binary.LittleEndian.PutUint32(info[firstEntryType:], 0)
	binary.LittleEndian.PutUint32(info[firstEntryType+24:], uint32(memUnknown)+4)

	memMap, err := Parse(info)
	require.Nil(t, err)
	require.Equal(t, MemReserved, memMap[0].Type)
	require.Equal(t, MemReserved, memMap[1].Type)
}

func TestParseErrors(t *testing.T) {
	t.Run("short header", func(t *testing.T) {
		_, err := Parse([]byte{1, 2, 3})
		require.Equal(t, errTruncatedInfo, err)
	})

	t.Run("total size exceeds data", func(t *testing.T) {
		_, err := Parse(multibootMemoryMap[:100])
		require.Equal(t, errTruncatedInfo, err)
	})

	t.Run("no memory map tag", func(t *testing.T) {
		info := []byte{
			24, 0, 0, 0, 0, 0, 0, 0,
			// boot loader name tag, size 9 ("a\0" padded to 8 bytes)
			2, 0, 0, 0, 10, 0, 0, 0, 'a', 0, 0, 0, 0, 0, 0, 0,
		}
		_, err := Parse(info)
		require.Equal(t, errMissingMemMap, err)

		info = []byte{
			32, 0, 0, 0, 0, 0, 0, 0,
			2, 0, 0, 0, 10, 0, 0, 0, 'a', 0, 0, 0, 0, 0, 0, 0,
			0, 0, 0, 0, 8, 0, 0, 0,
		}
		_, err = Parse(info)
		require.Equal(t, errMissingMemMap, err)
	})

	t.Run("invalid entry size", func(t *testing.T) {
		info := append([]byte(nil), multibootMemoryMap...)
		binary.LittleEndian.PutUint32(info[infoHeaderSize+tagHeaderSize:], 12)
		_, err := Parse(info)
		require.Equal(t, errInvalidMapEntry, err)
	})
}

func TestVisitMemRegions(t *testing.T) {
	memMap, err := Parse(multibootMemoryMap)
	require.Nil(t, err)

	var visited int
	memMap.VisitMemRegions(func(entry *MemoryMapEntry) bool {
		visited++
		entry.Type = MemNvs
		return visited < 3
	})

	require.Equal(t, 3, visited)
	require.Equal(t, MemAvailable, memMap[0].Type, "visitors must not modify the map")
}

func TestMemoryEntryTypeString(t *testing.T) {
	specs := []struct {
		input MemoryEntryType
		exp   string
	}{
		{MemAvailable, "available"},
		{MemReserved, "reserved"},
		{MemAcpiReclaimable, "ACPI (reclaimable)"},
		{MemNvs, "NVS"},
		{memUnknown, "unknown"},
	}

	for _, spec := range specs {
		require.Equal(t, spec.exp, spec.input.String())
	}
}

var (
	// A dump of multiboot data when running under qemu containing only the
	// memory region tag (followed by a truncated ELF symbols tag). The dump
	// encodes the following available memory regions:
	// [     0 -   9fc00] length:    654336
	// [100000 - 7fe0000] length: 133038080
	multibootMemoryMap = []byte{
		4, 1, 0, 0, 0, 0, 0, 0,
		6, 0, 0, 0, 160, 0, 0, 0, 24, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 252, 9, 0, 0, 0, 0, 0,
		1, 0, 0, 0, 0, 0, 0, 0, 0, 252, 9, 0, 0, 0, 0, 0,
		0, 4, 0, 0, 0, 0, 0, 0, 2, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 15, 0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0,
		2, 0, 0, 0, 0, 0, 0, 0, 0, 0, 16, 0, 0, 0, 0, 0,
		0, 0, 238, 7, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 254, 7, 0, 0, 0, 0, 0, 0, 2, 0, 0, 0, 0, 0,
		2, 0, 0, 0, 0, 0, 0, 0, 0, 0, 252, 255, 0, 0, 0, 0,
		0, 0, 4, 0, 0, 0, 0, 0, 2, 0, 0, 0, 0, 0, 0, 0,
		9, 0, 0, 0, 212, 3, 0, 0, 24, 0, 0, 0, 40, 0, 0, 0,
		21, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 27, 0, 0, 0,
		1, 0, 0, 0, 2, 0, 0, 0, 0, 0, 16, 0, 0, 16, 0, 0,
		24, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)
