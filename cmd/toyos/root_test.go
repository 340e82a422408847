package main

import (
	"testing"

	"github.com/keyem4251/toyos/kernel/hal/multiboot"
	"github.com/keyem4251/toyos/kernel/kmain"
	"github.com/keyem4251/toyos/kernel/mm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		input   string
		want    uintptr
		wantErr bool
	}{
		{input: "4096", want: 4096},
		{input: "64K", want: 64 * 1024},
		{input: "32M", want: 32 * 1024 * 1024},
		{input: "32mb", want: 32 * 1024 * 1024},
		{input: " 1G ", want: 1024 * 1024 * 1024},
		{input: "", wantErr: true},
		{input: "M", wantErr: true},
		{input: "-1M", wantErr: true},
		{input: "12Q", wantErr: true},
		{input: "99999999999G", wantErr: true},
		{input: "18446744073709551615K", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseSize(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMachineFlags(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		memSize, memMap, err := (&machineFlags{}).machine()
		require.NoError(t, err)
		assert.Equal(t, kmain.DefaultMemorySize, memSize)
		assert.Equal(t, kmain.DefaultMemoryMap(kmain.DefaultMemorySize), memMap)
	})

	t.Run("explicit size", func(t *testing.T) {
		memSize, memMap, err := (&machineFlags{mem: "8M"}).machine()
		require.NoError(t, err)
		assert.Equal(t, uintptr(8*mm.Mb), memSize)
		assert.Equal(t, kmain.DefaultMemoryMap(memSize), memMap)
	})

	t.Run("multiboot dump", func(t *testing.T) {
		want := multiboot.MemoryMap{
			{PhysAddress: 0, Length: 0x9fc00, Type: multiboot.MemAvailable},
			{PhysAddress: 0x100000, Length: 0x700000, Type: multiboot.MemAvailable},
			{PhysAddress: 0xfffc0000, Length: 0x40000, Type: multiboot.MemReserved},
		}
		path := writeMultibootDump(t, want)

		memSize, memMap, err := (&machineFlags{multiboot: path}).machine()
		require.NoError(t, err)
		assert.Equal(t, want, memMap)
		assert.Equal(t, uintptr(0x800000), memSize, "RAM ends at the top of the last available region")
	})

	t.Run("missing dump", func(t *testing.T) {
		_, _, err := (&machineFlags{multiboot: "does-not-exist.bin"}).machine()
		assert.Error(t, err)
	})

	t.Run("invalid size", func(t *testing.T) {
		_, _, err := (&machineFlags{mem: "lots"}).machine()
		assert.Error(t, err)
	})
}
