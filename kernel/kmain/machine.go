package kmain

import (
	"time"

	"github.com/keyem4251/toyos/device/keyboard"
	"github.com/keyem4251/toyos/kernel"
	"github.com/keyem4251/toyos/kernel/cpu"
	"github.com/keyem4251/toyos/kernel/gate"
	"github.com/keyem4251/toyos/kernel/hal/multiboot"
	"github.com/keyem4251/toyos/kernel/mm"
	"github.com/keyem4251/toyos/kernel/mm/physmem"
)

const (
	// DefaultMemorySize is the amount of emulated RAM used when the
	// configuration does not specify one.
	DefaultMemorySize = uintptr(32 * mm.Mb)

	// EndOfInput is the software interrupt raised once the emulated
	// keyboard has no more input. Its handler closes the scancode stream.
	EndOfInput = gate.InterruptNumber(0x80)

	lowMemoryEnd   = 0x9fc00
	kernelImageEnd = 0x200000
)

var (
	errMemoryMapOutOfRange = &kernel.Error{Module: "kmain", Message: "memory map reports available memory beyond the emulated RAM"}
)

// DefaultMemoryMap returns a memory map shaped like the one a PC BIOS
// reports for size bytes of RAM: the real-mode IVT, the EBDA and ROM area
// and the kernel image are reserved, everything else is available.
func DefaultMemoryMap(size uintptr) multiboot.MemoryMap {
	memMap := multiboot.MemoryMap{
		{PhysAddress: 0, Length: 0x1000, Type: multiboot.MemReserved},
		{PhysAddress: 0x1000, Length: lowMemoryEnd - 0x1000, Type: multiboot.MemAvailable},
		{PhysAddress: lowMemoryEnd, Length: 0x100000 - lowMemoryEnd, Type: multiboot.MemReserved},
		{PhysAddress: 0x100000, Length: kernelImageEnd - 0x100000, Type: multiboot.MemReserved},
	}

	if size > kernelImageEnd {
		memMap = append(memMap, multiboot.MemoryMapEntry{
			PhysAddress: kernelImageEnd,
			Length:      uint64(size - kernelImageEnd),
			Type:        multiboot.MemAvailable,
		})
	}

	return memMap
}

// Machine is the emulated hardware the kernel runs on.
type Machine struct {
	RAM       *physmem.Memory
	CPU       *cpu.Emulator
	IDT       *gate.Table
	MemoryMap multiboot.MemoryMap
}

// NewMachine powers up a machine with memSize bytes of RAM described by
// memMap. Every available region of the map must lie inside the RAM.
func NewMachine(memSize uintptr, memMap multiboot.MemoryMap) (*Machine, *kernel.Error) {
	ram, err := physmem.New(memSize)
	if err != nil {
		return nil, err
	}

	for _, entry := range memMap {
		if entry.Type == multiboot.MemAvailable && entry.End() > uint64(ram.Size()) {
			_ = ram.Close()
			return nil, errMemoryMapOutOfRange
		}
	}

	idt := &gate.Table{}
	return &Machine{
		RAM:       ram,
		CPU:       cpu.NewEmulator(0, idt),
		IDT:       idt,
		MemoryMap: memMap,
	}, nil
}

// SendScancodes delivers each scancode through the keyboard controller:
// the byte is latched on the data port and IRQ1 is raised.
func (m *Machine) SendScancodes(scancodes ...byte) {
	for _, scancode := range scancodes {
		m.CPU.RaiseInterrupt(gate.Keyboard, cpu.PortLatch{Port: keyboard.DataPort, Value: scancode})
	}
}

// TypeScancodes sends scancodes one at a time and waits for the CPU to go
// idle after each one, the way a human types slower than the kernel drains
// its input. It gives up and returns false once done is closed.
func (m *Machine) TypeScancodes(done <-chan struct{}, scancodes ...byte) bool {
	for _, scancode := range scancodes {
		halts := m.CPU.Halts()
		m.SendScancodes(scancode)

		for m.CPU.Halts() == halts {
			select {
			case <-done:
				return false
			case <-time.After(50 * time.Microsecond):
			}
		}
	}

	return true
}

// Close returns the emulated RAM to the host.
func (m *Machine) Close() {
	_ = m.RAM.Close()
}
