package main

import (
	"fmt"
	"io"
	"math/rand"

	"github.com/keyem4251/toyos/kernel/heap"
	"github.com/keyem4251/toyos/kernel/kfmt"
	"github.com/keyem4251/toyos/kernel/kmain"
	"github.com/spf13/cobra"
)

type heapOptions struct {
	machineFlags

	ops     int
	maxSize uint64
	seed    int64
}

var heapOpts heapOptions

func init() {
	cmd := newHeapCmd()
	heapOpts.register(cmd)
	cmd.Flags().IntVar(&heapOpts.ops, "ops", 1000, "Number of allocate/free operations")
	cmd.Flags().Uint64Var(&heapOpts.maxSize, "max-size", 512, "Largest allocation in bytes")
	cmd.Flags().Int64Var(&heapOpts.seed, "seed", 1, "Seed for the random workload")
	rootCmd.AddCommand(cmd)
}

func newHeapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "heap",
		Short: "Exercise the kernel heap with a random workload",
		Long: `The heap command boots the kernel and runs a random sequence of allocations
and frees against the kernel heap, checking that no two live blocks overlap.
It reports how fragmented the free list ends up.

Example:
  toyos heap --ops 5000 --max-size 1024
  toyos heap --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHeap(cmd.OutOrStdout(), heapOpts, jsonOut)
		},
	}
}

type heapReport struct {
	Operations  int     `json:"operations"`
	Allocations int     `json:"allocations"`
	Failures    int     `json:"failures"`
	Frees       int     `json:"frees"`
	LiveBlocks  int     `json:"live_blocks"`
	HeapSize    uint64  `json:"heap_size"`
	FreeBytes   uint64  `json:"free_bytes"`
	FreeNodes   int     `json:"free_nodes"`
	AvgFreeNode float64 `json:"avg_free_node"`
}

type liveBlock struct {
	addr   uintptr
	layout heap.Layout
}

func runHeap(w io.Writer, opts heapOptions, asJSON bool) error {
	if opts.ops < 0 || opts.maxSize == 0 {
		return fmt.Errorf("--ops must be >= 0 and --max-size > 0")
	}

	memSize, memMap, err := opts.machine()
	if err != nil {
		return err
	}

	// Boot messages only show up in debug mode
	defer kfmt.SetOutputSink(nil)
	ctx, kerr := kmain.Boot(kmain.Config{
		MemorySize: memSize,
		MemoryMap:  memMap,
		Output:     &logWriter{},
	})
	if kerr != nil {
		return fmt.Errorf("boot failed: %w", kerr)
	}
	defer ctx.Shutdown()

	var (
		alloc  = ctx.Allocator()
		rng    = rand.New(rand.NewSource(opts.seed))
		live   []liveBlock
		report = heapReport{Operations: opts.ops, HeapSize: uint64(heap.Size)}
	)

	for i := 0; i < opts.ops; i++ {
		if len(live) > 0 && rng.Intn(3) == 0 {
			index := rng.Intn(len(live))
			block := live[index]
			live[index] = live[len(live)-1]
			live = live[:len(live)-1]

			alloc.Dealloc(block.addr, block.layout)
			report.Frees++
			continue
		}

		layout := heap.Layout{
			Size:  uintptr(rng.Uint64()%opts.maxSize) + 1,
			Align: uintptr(1) << rng.Intn(7),
		}
		addr := alloc.Alloc(layout)
		if addr == 0 {
			report.Failures++
			continue
		}

		if addr%layout.Align != 0 || addr < heap.Start || addr+layout.Size > heap.Start+heap.Size {
			return fmt.Errorf("allocation %#x of %+v is misplaced", addr, layout)
		}
		for _, other := range live {
			if addr < other.addr+other.layout.Size && other.addr < addr+layout.Size {
				return fmt.Errorf("allocation %#x of %+v overlaps %#x", addr, layout, other.addr)
			}
		}

		live = append(live, liveBlock{addr: addr, layout: layout})
		report.Allocations++
	}

	stats := ctx.HeapStats()
	report.LiveBlocks = len(live)
	report.FreeBytes = uint64(stats.FreeBytes)
	report.FreeNodes = stats.FreeNodes
	if stats.FreeNodes > 0 {
		report.AvgFreeNode = float64(stats.FreeBytes) / float64(stats.FreeNodes)
	}

	logger.Debug("heap workload finished", "seed", opts.seed, "allocations", report.Allocations, "failures", report.Failures)

	if asJSON {
		return printJSON(w, report)
	}

	fmt.Fprintf(w, "operations:   %d\n", report.Operations)
	fmt.Fprintf(w, "allocations:  %d (%d failed)\n", report.Allocations, report.Failures)
	fmt.Fprintf(w, "frees:        %d\n", report.Frees)
	fmt.Fprintf(w, "live blocks:  %d\n", report.LiveBlocks)
	fmt.Fprintf(w, "free bytes:   %d of %d\n", report.FreeBytes, report.HeapSize)
	fmt.Fprintf(w, "free nodes:   %d (avg %.1f bytes)\n", report.FreeNodes, report.AvgFreeNode)
	return nil
}

// logWriter forwards kernel console output to the debug log, one record per
// write.
type logWriter struct{}

func (*logWriter) Write(p []byte) (int, error) {
	logger.Debug("kernel", "output", string(p))
	return len(p), nil
}
