package main

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/keyem4251/toyos/kernel/hal/multiboot"
	"github.com/stretchr/testify/require"
)

// writeMultibootDump encodes memMap as a multiboot2 information blob with a
// single memory map tag and returns the path of the file holding it.
func writeMultibootDump(t *testing.T, memMap multiboot.MemoryMap) string {
	t.Helper()

	const entrySize = 24
	tagSize := 8 + 8 + entrySize*len(memMap)

	info := make([]byte, 8+((tagSize+7)&^7)+8)
	binary.LittleEndian.PutUint32(info[0:], uint32(len(info)))

	tag := info[8:]
	binary.LittleEndian.PutUint32(tag[0:], 6)
	binary.LittleEndian.PutUint32(tag[4:], uint32(tagSize))
	binary.LittleEndian.PutUint32(tag[8:], entrySize)
	for i, entry := range memMap {
		raw := tag[16+i*entrySize:]
		binary.LittleEndian.PutUint64(raw[0:], entry.PhysAddress)
		binary.LittleEndian.PutUint64(raw[8:], entry.Length)
		binary.LittleEndian.PutUint32(raw[16:], uint32(entry.Type))
	}
	// The end tag (type 0, size 8) closes the blob
	binary.LittleEndian.PutUint32(info[len(info)-4:], 8)

	path := filepath.Join(t.TempDir(), "mbi.bin")
	require.NoError(t, os.WriteFile(path, info, 0o644))
	return path
}
