package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/keyem4251/toyos/device/keyboard"
	"github.com/keyem4251/toyos/kernel/kfmt"
	"github.com/keyem4251/toyos/kernel/kmain"
	"github.com/spf13/cobra"
)

var errKernelPanic = errors.New("kernel panic")

type bootOptions struct {
	machineFlags

	keys      string
	scancodes string
	queue     uint64
	screen    bool
}

var bootOpts bootOptions

func init() {
	cmd := newBootCmd()
	bootOpts.register(cmd)
	cmd.Flags().StringVar(&bootOpts.keys, "keys", "", "Text to type on the emulated keyboard")
	cmd.Flags().StringVar(&bootOpts.scancodes, "scancodes", "", "Raw scancode set 1 bytes to send, as hex (e.g. 1e9e)")
	cmd.Flags().Uint64Var(&bootOpts.queue, "queue", kmain.KeyboardQueueCapacity, "Capacity of the scancode queue")
	cmd.Flags().BoolVar(&bootOpts.screen, "screen", false, "Print the final contents of the VGA text screen")
	rootCmd.AddCommand(cmd)
}

func newBootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "boot",
		Short: "Boot the kernel and type into it",
		Long: `The boot command boots the kernel, runs the example task and echoes every
key typed on the emulated keyboard. The kernel shuts down once all input has
been consumed.

Example:
  toyos boot --keys "hello world"
  toyos boot --mem 64M --scancodes e048e0c8
  toyos boot --keys "hi" --screen`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoot(cmd.OutOrStdout(), bootOpts)
		},
	}
}

func runBoot(w io.Writer, opts bootOptions) error {
	memSize, memMap, err := opts.machine()
	if err != nil {
		return err
	}

	input, err := opts.input()
	if err != nil {
		return err
	}

	logger.Debug("booting", "mem", memSize, "regions", len(memMap), "scancodes", len(input), "queue", opts.queue)

	var panicked bool
	kfmt.SetHaltHook(func() { panicked = true })
	defer kfmt.SetHaltHook(nil)
	defer kfmt.SetOutputSink(nil)

	var screen strings.Builder
	cfg := kmain.Config{
		MemorySize:            memSize,
		MemoryMap:             memMap,
		Output:                w,
		KeyboardQueueCapacity: opts.queue,
		Scancodes:             input,
	}
	if opts.screen {
		cfg.ScreenDump = &screen
	}

	kmain.Kmain(cfg)

	if panicked {
		return errKernelPanic
	}

	if opts.screen {
		fmt.Fprintf(w, "\n+%s+\n%s", strings.Repeat("-", 80), screen.String())
	}
	return nil
}

// input returns the scancodes for the typed text followed by the raw ones.
func (opts bootOptions) input() ([]byte, error) {
	scancodes, kerr := keyboard.Type(opts.keys)
	if kerr != nil {
		return nil, fmt.Errorf("cannot type %q: %w", opts.keys, kerr)
	}

	if opts.scancodes != "" {
		raw, err := hex.DecodeString(strings.ReplaceAll(opts.scancodes, " ", ""))
		if err != nil {
			return nil, fmt.Errorf("invalid scancodes: %w", err)
		}
		scancodes = append(scancodes, raw...)
	}

	return scancodes, nil
}
