package keyboard

import (
	"io"

	"github.com/keyem4251/toyos/kernel"
	"github.com/keyem4251/toyos/kernel/cpu"
	"github.com/keyem4251/toyos/kernel/gate"
	"github.com/keyem4251/toyos/kernel/kfmt"
)

// DataPort is the I/O port of the PS/2 controller that holds the last
// scancode.
const DataPort = uint16(0x60)

// Driver services IRQ1: it reads the pending scancode from the controller
// and passes it on without decoding it.
type Driver struct {
	proc cpu.Processor
	idt  *gate.Table

	// addScancode runs in interrupt context.
	addScancode func(scancode byte)
}

// NewDriver returns a keyboard driver that forwards scancodes read from proc
// to addScancode. The handler is installed in idt by DriverInit.
func NewDriver(proc cpu.Processor, idt *gate.Table, addScancode func(byte)) *Driver {
	return &Driver{proc: proc, idt: idt, addScancode: addScancode}
}

// DriverName implements device.Driver.
func (*Driver) DriverName() string {
	return "ps2_keyboard"
}

// DriverVersion implements device.Driver.
func (*Driver) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit implements device.Driver.
func (drv *Driver) DriverInit(w io.Writer) *kernel.Error {
	drv.idt.HandleInterrupt(gate.Keyboard, drv.handleIRQ)
	kfmt.Fprintf(w, "listening on IRQ%d\n", uint8(gate.Keyboard-gate.PIC1Offset))
	return nil
}

func (drv *Driver) handleIRQ(_ *gate.Registers) {
	drv.addScancode(drv.proc.PortReadByte(DataPort))
}
