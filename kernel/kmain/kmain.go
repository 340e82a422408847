// Package kmain boots the kernel on an emulated machine. The boot sequence
// builds a Context that owns every subsystem: the frame source, the page
// table walker, the kernel heap, the task executor and the scancode bridge.
package kmain

import (
	"io"
	"sync/atomic"

	"github.com/keyem4251/toyos/device"
	"github.com/keyem4251/toyos/device/keyboard"
	"github.com/keyem4251/toyos/device/tty"
	"github.com/keyem4251/toyos/device/video/console"
	"github.com/keyem4251/toyos/kernel"
	"github.com/keyem4251/toyos/kernel/gate"
	"github.com/keyem4251/toyos/kernel/hal"
	"github.com/keyem4251/toyos/kernel/hal/multiboot"
	"github.com/keyem4251/toyos/kernel/heap"
	"github.com/keyem4251/toyos/kernel/irqbridge"
	"github.com/keyem4251/toyos/kernel/kfmt"
	"github.com/keyem4251/toyos/kernel/mm"
	"github.com/keyem4251/toyos/kernel/mm/pmm"
	"github.com/keyem4251/toyos/kernel/mm/vmm"
	"github.com/keyem4251/toyos/kernel/sync"
	"github.com/keyem4251/toyos/kernel/task"
)

const (
	// KeyboardQueueCapacity is the number of scancodes the keyboard
	// bridge buffers before it starts dropping input.
	KeyboardQueueCapacity = uint64(100)

	// TaskQueueCapacity bounds the number of live tasks.
	TaskQueueCapacity = uint64(64)

	// ScreenAddress is the virtual page the VGA text buffer is mapped at.
	ScreenAddress = uintptr(0xdeadbeaf000)
)

// Config describes the machine to boot.
type Config struct {
	// MemorySize is the amount of emulated RAM. Zero selects
	// DefaultMemorySize.
	MemorySize uintptr

	// MemoryMap is the memory map reported by the boot loader. A nil map
	// selects DefaultMemoryMap(MemorySize).
	MemoryMap multiboot.MemoryMap

	// Output is the serial line. It receives the console output, which is
	// also shown on the screen once the screen is up.
	Output io.Writer

	// ScreenDump receives the final contents of the screen when Kmain
	// returns.
	ScreenDump io.Writer

	// KeyboardQueueCapacity overrides the size of the scancode buffer.
	KeyboardQueueCapacity uint64

	// Scancodes is the keyboard input fed to the kernel by Kmain.
	Scancodes []byte
}

func (cfg *Config) normalize() {
	if cfg.MemorySize == 0 {
		cfg.MemorySize = DefaultMemorySize
	}
	if cfg.MemoryMap == nil {
		cfg.MemoryMap = DefaultMemoryMap(cfg.MemorySize)
	}
	if cfg.KeyboardQueueCapacity == 0 {
		cfg.KeyboardQueueCapacity = KeyboardQueueCapacity
	}
}

// Context is the kernel state created by Boot. Subsystems receive it (or the
// parts they need) explicitly instead of reaching for globals.
type Context struct {
	machine *Machine
	frames  *pmm.BootMemAllocator
	walker  *vmm.Walker

	serial   io.Writer
	screen   *console.Vga
	terminal *tty.Vt

	heapRegion *heap.Region
	allocator  *heap.Locked[*heap.LinkedListAllocator]

	executor *task.Executor

	keyboardQueueCap uint64
	scancodes        sync.OnceCell[*irqbridge.Bridge]
	missedScancodes  atomic.Uint64
	drivers          []device.Driver
}

// Boot powers up the machine described by cfg and initializes the memory
// subsystem, the kernel heap, the executor and the device drivers. The
// keyboard bridge is left for InitKeyboard.
func Boot(cfg Config) (*Context, *kernel.Error) {
	cfg.normalize()
	kfmt.SetOutputSink(cfg.Output)

	machine, err := NewMachine(cfg.MemorySize, cfg.MemoryMap)
	if err != nil {
		return nil, err
	}

	ctx := &Context{
		machine:          machine,
		serial:           cfg.Output,
		frames:           pmm.NewBootMemAllocator(cfg.MemoryMap),
		heapRegion:       heap.NewRegion(heap.Start, heap.Size),
		allocator:        heap.NewLocked(heap.NewLinkedListAllocator()),
		keyboardQueueCap: cfg.KeyboardQueueCapacity,
	}

	if err = ctx.init(); err != nil {
		ctx.Shutdown()
		return nil, err
	}

	return ctx, nil
}

func (ctx *Context) init() *kernel.Error {
	ctx.frames.PrintMemoryMap()

	// The boot stage hands over an empty top-level page table in the
	// first usable frame.
	pdt, err := ctx.frames.AllocFrame()
	if err != nil {
		return err
	}
	mm.Memset(ctx.machine.RAM.Pointer(pdt.Address()), 0, mm.PageSize)
	ctx.machine.CPU.SwitchPDT(pdt.Address())

	if ctx.walker, err = vmm.NewWalker(ctx.machine.CPU, ctx.machine.RAM); err != nil {
		return err
	}

	if err = ctx.InitHeap(); err != nil {
		return err
	}

	ready, err := ctx.newQueue(TaskQueueCapacity)
	if err != nil {
		return err
	}
	ctx.executor = task.NewExecutor(ctx.machine.CPU, ready)

	if err = ctx.initScreen(); err != nil {
		return err
	}

	ctx.machine.IDT.HandleInterrupt(EndOfInput, ctx.endOfInput)
	ctx.drivers = hal.InitDrivers([]device.ProbeFn{ctx.probeScreen, ctx.probeKeyboard})

	return nil
}

// initScreen maps the VGA text buffer at ScreenAddress and mirrors the
// console output on it. Machines whose RAM does not reach the text buffer
// run without a screen.
func (ctx *Context) initScreen() *kernel.Error {
	if ctx.machine.RAM.Size() < vmm.VgaTextBufferAddr+console.VgaFramebufferSize {
		kfmt.Printf("[kmain] no VGA text buffer; running without a screen\n")
		return nil
	}

	if err := ctx.walker.MapExample(mm.PageFromAddress(ScreenAddress), ctx.frames); err != nil {
		return err
	}

	fb, err := ctx.walker.Resolve(ScreenAddress, console.VgaFramebufferSize)
	if err != nil {
		return err
	}

	if ctx.screen, err = console.NewVga(fb, vmm.VgaTextBufferAddr); err != nil {
		return err
	}

	ctx.terminal = &tty.Vt{}
	ctx.terminal.AttachTo(ctx.screen)
	ctx.terminal.Clear()

	if ctx.serial != nil {
		kfmt.SetOutputSink(io.MultiWriter(ctx.serial, ctx.terminal))
	} else {
		kfmt.SetOutputSink(ctx.terminal)
	}
	return nil
}

// InitHeap maps the kernel heap window and hands it to the allocator. Boot
// calls it once; any further call returns sync.ErrAlreadyInitialized.
func (ctx *Context) InitHeap() *kernel.Error {
	if err := ctx.heapRegion.Init(ctx.walker, ctx.frames, ctx.allocator); err != nil {
		return err
	}

	start, size := ctx.heapRegion.Bounds()
	kfmt.Printf("[kmain] heap mapped at 0x%x (%dKb)\n", start, size/uintptr(mm.Kb))
	return nil
}

// InitKeyboard allocates the scancode buffer on the kernel heap and returns
// the stream it feeds. Scancodes that arrive before InitKeyboard are
// dropped. A second call returns sync.ErrAlreadyInitialized.
func (ctx *Context) InitKeyboard() (irqbridge.Stream, *kernel.Error) {
	if _, err := ctx.scancodes.TryGet(); err == nil {
		return nil, sync.ErrAlreadyInitialized
	}

	if missed := ctx.missedScancodes.Swap(0); missed != 0 {
		kfmt.Printf("[kmain] WARNING: scancode queue uninitialized; dropped %d scancode(s)\n", missed)
	}

	ring, err := ctx.newQueue(ctx.keyboardQueueCap)
	if err != nil {
		return nil, err
	}

	if err = ctx.scancodes.TryInit(func() *irqbridge.Bridge { return irqbridge.New(ring) }); err != nil {
		return nil, err
	}

	bridge, _ := ctx.scancodes.TryGet()
	return bridge, nil
}

// addScancode runs in interrupt context. It must not print: scancodes that
// arrive before InitKeyboard are counted and reported by InitKeyboard.
func (ctx *Context) addScancode(scancode byte) {
	bridge, err := ctx.scancodes.TryGet()
	if err != nil {
		ctx.missedScancodes.Add(1)
		return
	}

	bridge.Offer(scancode)
}

func (ctx *Context) endOfInput(_ *gate.Registers) {
	if bridge, err := ctx.scancodes.TryGet(); err == nil {
		bridge.Close()
	}
}

func (ctx *Context) probeScreen() device.Driver {
	if ctx.screen == nil {
		return nil
	}
	return ctx.screen
}

func (ctx *Context) probeKeyboard() device.Driver {
	return keyboard.NewDriver(ctx.machine.CPU, ctx.machine.IDT, ctx.addScancode)
}

// newQueue carves a queue with room for capacity values out of the heap.
func (ctx *Context) newQueue(capacity uint64) (*task.Queue, *kernel.Error) {
	backing, err := ctx.Allocate(heap.Layout{Size: task.QueueSize(capacity), Align: task.QueueAlign})
	if err != nil {
		return nil, err
	}

	return task.NewQueue(backing, capacity)
}

// Allocate reserves a block on the kernel heap.
func (ctx *Context) Allocate(layout heap.Layout) (mm.Backing, *kernel.Error) {
	return heap.Allocate(ctx.allocator, ctx.walker, layout)
}

// Allocator returns the kernel heap allocator.
func (ctx *Context) Allocator() heap.GlobalAllocator {
	return ctx.allocator
}

// HeapStats reports the free space left on the kernel heap.
func (ctx *Context) HeapStats() heap.Stats {
	var stats heap.Stats
	ctx.allocator.Do(func(a *heap.LinkedListAllocator) {
		stats = a.Stats()
	})
	return stats
}

// Machine returns the machine the kernel runs on.
func (ctx *Context) Machine() *Machine {
	return ctx.machine
}

// Walker returns the page table walker of the kernel address space.
func (ctx *Context) Walker() *vmm.Walker {
	return ctx.walker
}

// Frames returns the physical frame source.
func (ctx *Context) Frames() *pmm.BootMemAllocator {
	return ctx.frames
}

// ScreenLines returns the text on the screen, or nil if the machine has no
// screen.
func (ctx *Context) ScreenLines() []string {
	if ctx.terminal == nil {
		return nil
	}
	return ctx.terminal.Lines()
}

// Drivers returns the drivers that were initialized at boot.
func (ctx *Context) Drivers() []device.Driver {
	return ctx.drivers
}

// Spawn schedules future on the kernel executor.
func (ctx *Context) Spawn(future task.Future) (task.ID, *kernel.Error) {
	return ctx.executor.Spawn(future)
}

// Run polls tasks until every spawned task has completed.
func (ctx *Context) Run() {
	ctx.executor.Run()
}

// Shutdown releases the address space and powers the machine off. The
// Context must not be used afterwards.
func (ctx *Context) Shutdown() {
	// The screen lives in the machine's RAM
	kfmt.SetOutputSink(ctx.serial)
	ctx.screen, ctx.terminal = nil, nil

	if ctx.walker != nil {
		ctx.walker.Release()
		ctx.walker = nil
	}
	ctx.machine.Close()
}

// Kmain boots the kernel described by cfg, spawns the example and keyboard
// tasks and runs them while cfg.Scancodes are typed in from another
// goroutine. It returns once the keyboard input has been consumed.
//
// Boot failures and panics raised by the kernel are reported through
// kfmt.Panic.
func Kmain(cfg Config) {
	defer func() {
		if r := recover(); r != nil {
			kfmt.Panic(r)
		}
	}()

	ctx, err := Boot(cfg)
	if err != nil {
		panic(err)
	}
	defer ctx.Shutdown()

	scancodes, err := ctx.InitKeyboard()
	if err != nil {
		panic(err)
	}

	if _, err = ctx.Spawn(task.FutureFunc(exampleTask)); err != nil {
		panic(err)
	}
	if _, err = ctx.Spawn(keyboard.NewPrintKeypresses(scancodes, kfmt.GetOutputSink())); err != nil {
		panic(err)
	}

	var (
		done   = make(chan struct{})
		typing = make(chan struct{})
	)
	defer func() {
		// The typist must be gone before the machine is powered off
		ctx.machine.CPU.EnableInterrupts()
		close(done)
		<-typing
	}()
	go func(input []byte) {
		defer close(typing)
		if ctx.machine.TypeScancodes(done, input...) {
			ctx.machine.CPU.RaiseInterrupt(EndOfInput)
		}
	}(cfg.Scancodes)

	ctx.Run()
	kfmt.Printf("\n[kmain] all tasks completed\n")

	if cfg.ScreenDump != nil {
		for _, line := range ctx.ScreenLines() {
			kfmt.Fprintf(cfg.ScreenDump, "%s\n", line)
		}
	}
}
