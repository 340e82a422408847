// Package multiboot decodes the memory map that the bootloader hands over to
// the kernel. The map is supplied either as a multiboot2 information blob or
// directly as a list of regions.
package multiboot

import (
	"encoding/binary"

	"github.com/keyem4251/toyos/kernel"
)

type tagType uint32

// nolint
const (
	tagMbSectionEnd tagType = iota
	tagBootCmdLine
	tagBootLoaderName
	tagModules
	tagBasicMemoryInfo
	tagBiosBootDevice
	tagMemoryMap
)

const (
	infoHeaderSize = 8
	tagHeaderSize  = 8
	mmapHeaderSize = 8

	// mmapEntryMinSize is the size of the fields read from each memory
	// map entry: base address, length and type.
	mmapEntryMinSize = 20
)

var (
	errTruncatedInfo   = &kernel.Error{Module: "multiboot", Message: "multiboot info data is truncated"}
	errMissingMemMap   = &kernel.Error{Module: "multiboot", Message: "multiboot info does not contain a memory map"}
	errInvalidMapEntry = &kernel.Error{Module: "multiboot", Message: "memory map entry size is invalid"}
)

// MemoryEntryType defines the type of a MemoryMapEntry.
type MemoryEntryType uint32

const (
	// MemAvailable indicates that the memory region is available for use.
	MemAvailable MemoryEntryType = iota + 1

	// MemReserved indicates that the memory region is not available for use.
	MemReserved

	// MemAcpiReclaimable indicates a memory region that holds ACPI info that
	// can be reused by the OS.
	MemAcpiReclaimable

	// MemNvs indicates memory that must be preserved when hibernating.
	MemNvs

	// Any value >= memUnknown will be mapped to MemReserved.
	memUnknown
)

// String implements fmt.Stringer for MemoryEntryType.
func (t MemoryEntryType) String() string {
	switch t {
	case MemAvailable:
		return "available"
	case MemReserved:
		return "reserved"
	case MemAcpiReclaimable:
		return "ACPI (reclaimable)"
	case MemNvs:
		return "NVS"
	default:
		return "unknown"
	}
}

// MemoryMapEntry describes a memory region entry, namely its physical address,
// its length and its type.
type MemoryMapEntry struct {
	// The physical address for this memory region.
	PhysAddress uint64

	// The length of the memory region.
	Length uint64

	// The type of this entry.
	Type MemoryEntryType
}

// End returns the first physical address past the region.
func (e *MemoryMapEntry) End() uint64 {
	return e.PhysAddress + e.Length
}

// MemRegionVisitor defines a visitor function that gets invoked by
// VisitMemRegions for each memory region provided by the boot loader. The
// visitor must return true to continue or false to abort the scan.
type MemRegionVisitor func(*MemoryMapEntry) bool

// MemoryMap is the ordered list of physical memory regions reported by the
// bootloader.
type MemoryMap []MemoryMapEntry

// VisitMemRegions invokes visitor for each region in the memory map. The
// visitor receives a copy of each entry so it cannot modify the map.
func (m MemoryMap) VisitMemRegions(visitor MemRegionVisitor) {
	for i := range m {
		entry := m[i]
		if !visitor(&entry) {
			return
		}
	}
}

// Parse extracts the memory map tag from a multiboot2 information blob.
// Entries with an unknown type are reported as MemReserved.
func Parse(info []byte) (MemoryMap, *kernel.Error) {
	payload, err := findTagByType(info, tagMemoryMap)
	if err != nil {
		return nil, err
	}

	if len(payload) < mmapHeaderSize {
		return nil, errTruncatedInfo
	}

	entrySize := int(binary.LittleEndian.Uint32(payload[0:4]))
	if entrySize < mmapEntryMinSize {
		return nil, errInvalidMapEntry
	}

	var memMap MemoryMap
	for cur := payload[mmapHeaderSize:]; len(cur) >= entrySize; cur = cur[entrySize:] {
		entry := MemoryMapEntry{
			PhysAddress: binary.LittleEndian.Uint64(cur[0:8]),
			Length:      binary.LittleEndian.Uint64(cur[8:16]),
			Type:        MemoryEntryType(binary.LittleEndian.Uint32(cur[16:20])),
		}

		// Mark unknown entry types as reserved
		if entry.Type == 0 || entry.Type >= memUnknown {
			entry.Type = MemReserved
		}

		memMap = append(memMap, entry)
	}

	return memMap, nil
}

// findTagByType scans the multiboot info data looking for a tag of the
// specified type and returns its payload (excluding the tag header).
func findTagByType(info []byte, tt tagType) ([]byte, *kernel.Error) {
	if len(info) < infoHeaderSize {
		return nil, errTruncatedInfo
	}

	totalSize := int(binary.LittleEndian.Uint32(info[0:4]))
	if totalSize > len(info) || totalSize < infoHeaderSize {
		return nil, errTruncatedInfo
	}

	for cur := infoHeaderSize; cur+tagHeaderSize <= totalSize; {
		curType := tagType(binary.LittleEndian.Uint32(info[cur : cur+4]))
		size := int(binary.LittleEndian.Uint32(info[cur+4 : cur+8]))

		if curType == tagMbSectionEnd {
			break
		}

		if size < tagHeaderSize || cur+size > totalSize {
			return nil, errTruncatedInfo
		}

		if curType == tt {
			return info[cur+tagHeaderSize : cur+size], nil
		}

		// Tags are aligned at 8-byte aligned addresses
		cur += (size + 7) &^ 7
	}

	return nil, errMissingMemMap
}
