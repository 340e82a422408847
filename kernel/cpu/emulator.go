package cpu

import (
	"sync"
	"sync/atomic"

	"github.com/keyem4251/toyos/kernel/gate"
)

// PortLatch is a value a device places on an I/O port before raising its
// interrupt line.
type PortLatch struct {
	Port  uint16
	Value uint8
}

// Emulator is a hosted Processor. The interrupt flag is modelled by intLock:
// the kernel thread holds it while interrupts are disabled and interrupt
// delivery needs it to run a handler, so interrupts raised while disabled are
// delivered as soon as they are re-enabled.
type Emulator struct {
	idt *gate.Table

	intLock sync.Mutex
	halted  *sync.Cond

	// disabled is only touched by the kernel thread.
	disabled bool

	portLock sync.Mutex
	ports    map[uint16]uint8

	pdt atomic.Uintptr

	tlbFlushes atomic.Uint64
	halts      atomic.Uint64
	delivered  atomic.Uint64
}

// NewEmulator returns an emulated processor whose active page table is rooted
// at pdtPhysAddr and which dispatches interrupts through idt. Interrupts start
// out enabled.
func NewEmulator(pdtPhysAddr uintptr, idt *gate.Table) *Emulator {
	emu := &Emulator{
		idt:   idt,
		ports: make(map[uint16]uint8),
	}
	emu.halted = sync.NewCond(&emu.intLock)
	emu.pdt.Store(pdtPhysAddr)
	return emu
}

// EnableInterrupts implements Processor.
func (emu *Emulator) EnableInterrupts() {
	if emu.disabled {
		emu.disabled = false
		emu.intLock.Unlock()
	}
}

// DisableInterrupts implements Processor.
func (emu *Emulator) DisableInterrupts() {
	if !emu.disabled {
		emu.intLock.Lock()
		emu.disabled = true
	}
}

// InterruptsEnabled reports the state of the emulated interrupt flag.
func (emu *Emulator) InterruptsEnabled() bool {
	return !emu.disabled
}

// EnableInterruptsAndHalt implements Processor. Waiting on the condition
// releases intLock atomically so no interrupt can slip in between enabling
// interrupts and halting.
func (emu *Emulator) EnableInterruptsAndHalt() {
	if !emu.disabled {
		emu.intLock.Lock()
	}
	emu.disabled = false

	emu.halts.Add(1)
	emu.halted.Wait()
	emu.intLock.Unlock()
}

// RaiseInterrupt writes latches to their ports and then runs the handler
// registered for intNumber. The call blocks while the kernel thread has
// interrupts disabled. It may be invoked from any goroutine.
func (emu *Emulator) RaiseInterrupt(intNumber gate.InterruptNumber, latches ...PortLatch) {
	emu.intLock.Lock()
	defer emu.intLock.Unlock()

	for _, latch := range latches {
		emu.PortWriteByte(latch.Port, latch.Value)
	}

	var regs gate.Registers
	emu.idt.Dispatch(intNumber, &regs)
	emu.delivered.Add(1)

	// Wake a halted CPU
	emu.halted.Broadcast()
}

// FlushTLBEntry implements Processor.
func (emu *Emulator) FlushTLBEntry(_ uintptr) {
	emu.tlbFlushes.Add(1)
}

// SwitchPDT sets the root page table directory to point to the specified
// physical address.
func (emu *Emulator) SwitchPDT(pdtPhysAddr uintptr) {
	emu.pdt.Store(pdtPhysAddr)
}

// ActivePDT implements Processor.
func (emu *Emulator) ActivePDT() uintptr {
	return emu.pdt.Load()
}

// PortReadByte implements Processor.
func (emu *Emulator) PortReadByte(port uint16) uint8 {
	emu.portLock.Lock()
	defer emu.portLock.Unlock()
	return emu.ports[port]
}

// PortWriteByte implements Processor.
func (emu *Emulator) PortWriteByte(port uint16, val uint8) {
	emu.portLock.Lock()
	emu.ports[port] = val
	emu.portLock.Unlock()
}

// TLBFlushes returns the number of TLB entries flushed so far.
func (emu *Emulator) TLBFlushes() uint64 { return emu.tlbFlushes.Load() }

// Halts returns the number of times the CPU was halted.
func (emu *Emulator) Halts() uint64 { return emu.halts.Load() }

// Delivered returns the number of interrupts delivered so far.
func (emu *Emulator) Delivered() uint64 { return emu.delivered.Load() }
