package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/keyem4251/toyos/kernel/hal/multiboot"
	"github.com/keyem4251/toyos/kernel/kmain"
	"github.com/keyem4251/toyos/kernel/mm"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
	jsonOut bool

	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
)

var rootCmd = &cobra.Command{
	Use:   "toyos",
	Short: "Boot a toy kernel on an emulated machine",
	Long: `toyos boots a small kernel core on an emulated x86-64 machine: it maps a
kernel heap through 4-level page tables, runs a cooperative task executor and
feeds it keyboard interrupts.`,
	Version: "0.1.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogger(cmd.ErrOrStderr())
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging on stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initLogger(w io.Writer) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// printJSON outputs data as indented JSON
func printJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// parseSize parses a byte count with an optional K, M or G suffix.
func parseSize(s string) (uintptr, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "B")

	unit := mm.Byte
	switch {
	case strings.HasSuffix(s, "K"):
		unit = mm.Kb
	case strings.HasSuffix(s, "M"):
		unit = mm.Mb
	case strings.HasSuffix(s, "G"):
		unit = mm.Gb
	}
	if unit != mm.Byte {
		s = s[:len(s)-1]
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	if n > uint64(^uintptr(0))/uint64(unit) {
		return 0, fmt.Errorf("size %q is too large", s)
	}
	return uintptr(n * uint64(unit)), nil
}

// machineFlags are the flags shared by commands that describe a machine.
type machineFlags struct {
	mem       string
	multiboot string
}

func (f *machineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.mem, "mem", "", "Emulated RAM size (e.g. 32M); defaults to 32M or to the top of the multiboot memory map")
	cmd.Flags().StringVar(&f.multiboot, "multiboot", "", "Read the memory map from a multiboot2 information dump")
}

// machine resolves the RAM size and memory map described by the flags.
func (f *machineFlags) machine() (uintptr, multiboot.MemoryMap, error) {
	var (
		memSize uintptr
		memMap  multiboot.MemoryMap
		err     error
	)

	if f.mem != "" {
		if memSize, err = parseSize(f.mem); err != nil {
			return 0, nil, err
		}
	}

	if f.multiboot != "" {
		data, err := os.ReadFile(f.multiboot)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to read multiboot info: %w", err)
		}

		if memMap, err = parseMultiboot(data); err != nil {
			return 0, nil, err
		}
		logger.Debug("parsed multiboot memory map", "path", f.multiboot, "regions", len(memMap))

		if memSize == 0 {
			memSize = topOfAvailable(memMap)
		}
	}

	if memSize == 0 {
		memSize = kmain.DefaultMemorySize
	}
	if memMap == nil {
		memMap = kmain.DefaultMemoryMap(memSize)
	}

	return memSize, memMap, nil
}

// topOfAvailable returns the end of the highest available region.
func topOfAvailable(memMap multiboot.MemoryMap) uintptr {
	var top uint64
	memMap.VisitMemRegions(func(entry *multiboot.MemoryMapEntry) bool {
		if entry.Type == multiboot.MemAvailable && entry.End() > top {
			top = entry.End()
		}
		return true
	})
	return uintptr(top)
}

func parseMultiboot(data []byte) (multiboot.MemoryMap, error) {
	memMap, err := multiboot.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse multiboot info: %w", err)
	}
	return memMap, nil
}
