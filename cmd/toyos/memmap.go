package main

import (
	"io"

	"github.com/keyem4251/toyos/kernel/hal/multiboot"
	"github.com/keyem4251/toyos/kernel/kfmt"
	"github.com/keyem4251/toyos/kernel/mm/pmm"
	"github.com/spf13/cobra"
)

var memmapOpts machineFlags

func init() {
	cmd := newMemmapCmd()
	memmapOpts.register(cmd)
	rootCmd.AddCommand(cmd)
}

func newMemmapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "memmap",
		Short: "Show the physical memory map",
		Long: `The memmap command prints the memory map the frame allocator would use,
either the default PC layout for the requested RAM size or the map contained
in a multiboot2 information dump.

Example:
  toyos memmap --mem 128M
  toyos memmap --multiboot mbi.bin --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMemmap(cmd.OutOrStdout(), memmapOpts, jsonOut)
		},
	}
}

type memRegion struct {
	Start  uint64 `json:"start"`
	End    uint64 `json:"end"`
	Length uint64 `json:"length"`
	Type   string `json:"type"`
	Frames uint64 `json:"frames"`
}

type memMapReport struct {
	MemorySize uint64      `json:"memory_size"`
	Regions    []memRegion `json:"regions"`
	FreeFrames uint64      `json:"free_frames"`
}

func runMemmap(w io.Writer, opts machineFlags, asJSON bool) error {
	memSize, memMap, err := opts.machine()
	if err != nil {
		return err
	}

	frames := pmm.NewBootMemAllocator(memMap)
	if !asJSON {
		kfmt.SetOutputSink(w)
		defer kfmt.SetOutputSink(nil)
		frames.PrintMemoryMap()
		return nil
	}

	report := memMapReport{
		MemorySize: uint64(memSize),
		Regions:    make([]memRegion, 0, len(memMap)),
		FreeFrames: frames.FreeFrames(),
	}
	memMap.VisitMemRegions(func(entry *multiboot.MemoryMapEntry) bool {
		_, count := pmm.UsableFrames(entry)
		report.Regions = append(report.Regions, memRegion{
			Start:  entry.PhysAddress,
			End:    entry.End(),
			Length: entry.Length,
			Type:   entry.Type.String(),
			Frames: count,
		})
		return true
	})

	return printJSON(w, report)
}
