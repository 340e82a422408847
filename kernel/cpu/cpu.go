// Package cpu abstracts the privileged processor operations the kernel core
// depends on: the interrupt flag, halting, TLB maintenance, the active page
// table root and I/O ports.
package cpu

// Processor is implemented by the CPU the kernel runs on. All methods must be
// called from the kernel thread; only interrupt delivery happens elsewhere.
type Processor interface {
	// EnableInterrupts enables interrupt handling.
	EnableInterrupts()

	// DisableInterrupts disables interrupt handling. Interrupts raised
	// while disabled are held pending until they are re-enabled.
	DisableInterrupts()

	// EnableInterruptsAndHalt atomically enables interrupts and stops
	// instruction execution until the next interrupt has been serviced
	// (the sti; hlt pair). An interrupt that was pending when the call
	// was made ends the halt immediately.
	EnableInterruptsAndHalt()

	// FlushTLBEntry flushes a TLB entry for a particular virtual address.
	FlushTLBEntry(virtAddr uintptr)

	// ActivePDT returns the physical address of the currently active
	// top-level page table.
	ActivePDT() uintptr

	// PortReadByte reads a uint8 value from the requested port.
	PortReadByte(port uint16) uint8

	// PortWriteByte writes a uint8 value to the requested port.
	PortWriteByte(port uint16, val uint8)
}
