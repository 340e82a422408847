// Package gate routes hardware interrupts and CPU exceptions to the handlers
// registered by the rest of the kernel.
package gate

import (
	"github.com/keyem4251/toyos/kernel/sync"
)

// Registers contains a snapshot of all register values when an exception,
// interrupt or syscall occurs.
type Registers struct {
	RAX uint64
	RBX uint64
	RCX uint64
	RDX uint64
	RSI uint64
	RDI uint64
	RBP uint64

	// Info contains the exception code for exceptions or the interrupt
	// number for HW interrupts.
	Info uint64

	// The return frame used by IRETQ
	RIP    uint64
	CS     uint64
	RFlags uint64
	RSP    uint64
	SS     uint64
}

// InterruptNumber describes an x86 interrupt/exception/trap slot.
type InterruptNumber uint8

const (
	// DoubleFault occurs when an unhandled exception occurs or when an
	// exception occurs within a running exception handler.
	DoubleFault = InterruptNumber(8)

	// GPFException occurs when a general protection fault occurs.
	GPFException = InterruptNumber(13)

	// PageFaultException occurs when a page directory table (PDT) or one
	// of its entries is not present or when a privilege and/or RW
	// protection check fails.
	PageFaultException = InterruptNumber(14)

	// PIC1Offset is the first slot used by the remapped legacy PIC. IRQs
	// 0-7 are delivered at PIC1Offset+irq.
	PIC1Offset = InterruptNumber(32)

	// Timer is raised by the programmable interval timer (IRQ0).
	Timer = PIC1Offset

	// Keyboard is raised by the PS/2 controller whenever a scancode is
	// available at its data port (IRQ1).
	Keyboard = PIC1Offset + 1
)

// Handler services an interrupt. Handlers run with interrupts disabled and
// must not block.
type Handler func(*Registers)

// Table maps interrupt numbers to handlers. The zero value is an empty table
// ready for use.
type Table struct {
	lock     sync.Spinlock
	handlers [256]Handler
}

// HandleInterrupt ensures that the provided handler will be invoked when a
// particular interrupt number occurs. Passing a nil handler clears the slot.
func (t *Table) HandleInterrupt(intNumber InterruptNumber, handler Handler) {
	t.lock.Acquire()
	t.handlers[intNumber] = handler
	t.lock.Release()
}

// Dispatch invokes the handler registered for intNumber and reports whether
// one was installed. The interrupt number is recorded in regs.Info.
func (t *Table) Dispatch(intNumber InterruptNumber, regs *Registers) bool {
	t.lock.Acquire()
	handler := t.handlers[intNumber]
	t.lock.Release()

	if handler == nil {
		return false
	}

	regs.Info = uint64(intNumber)
	handler(regs)
	return true
}
