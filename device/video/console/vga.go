package console

import (
	"io"

	"github.com/keyem4251/toyos/kernel"
	"github.com/keyem4251/toyos/kernel/kfmt"
	"github.com/keyem4251/toyos/kernel/mm"
)

const (
	clearColor = Black
	clearChar  = byte(' ')

	// VgaWidth and VgaHeight are the dimensions of the VGA text mode 0x3
	// screen in characters.
	VgaWidth  = uint16(80)
	VgaHeight = uint16(25)

	// VgaFramebufferSize is the size of the text mode framebuffer in bytes.
	VgaFramebufferSize = uintptr(VgaWidth) * uintptr(VgaHeight) * 2
)

var errFramebufferTooSmall = &kernel.Error{Module: "vga", Message: "framebuffer is smaller than an 80x25 text screen"}

// Vga implements an 80x25 EGA-compatible text console. Each character cell
// is two bytes in the framebuffer: the character code followed by the
// foreground and background colors (4 bits each).
type Vga struct {
	width  uint16
	height uint16

	fbAddr uintptr
	fb     mm.Backing
}

// NewVga returns a console that draws into fb, the memory that the VGA text
// buffer at physical address fbAddr is mapped to.
func NewVga(fb mm.Backing, fbAddr uintptr) (*Vga, *kernel.Error) {
	if fb.Size() < VgaFramebufferSize {
		return nil, errFramebufferTooSmall
	}

	return &Vga{width: VgaWidth, height: VgaHeight, fbAddr: fbAddr, fb: fb}, nil
}

func (cons *Vga) cell(index uint16) *uint16 {
	return (*uint16)(cons.fb.Pointer(uintptr(index) << 1))
}

// Clear clears the specified rectangular region
func (cons *Vga) Clear(x, y, width, height uint16) {
	var (
		attr                 = uint16((clearColor << 4) | clearColor)
		clr                  = attr<<8 | uint16(clearChar)
		rowOffset, colOffset uint16
	)

	// clip rectangle
	if x >= cons.width {
		x = cons.width
	}
	if y >= cons.height {
		y = cons.height
	}

	if x+width > cons.width {
		width = cons.width - x
	}
	if y+height > cons.height {
		height = cons.height - y
	}

	rowOffset = (y * cons.width) + x
	for ; height > 0; height, rowOffset = height-1, rowOffset+cons.width {
		for colOffset = rowOffset; colOffset < rowOffset+width; colOffset++ {
			*cons.cell(colOffset) = clr
		}
	}
}

// Dimensions returns the console width and height in characters.
func (cons *Vga) Dimensions() (uint16, uint16) {
	return cons.width, cons.height
}

// Scroll a particular number of lines to the specified direction.
func (cons *Vga) Scroll(dir ScrollDir, lines uint16) {
	if lines == 0 || lines > cons.height {
		return
	}

	var i uint16
	offset := lines * cons.width

	switch dir {
	case Up:
		for ; i < (cons.height-lines)*cons.width; i++ {
			*cons.cell(i) = *cons.cell(i + offset)
		}
	case Down:
		for i = cons.height*cons.width - 1; i >= lines*cons.width; i-- {
			*cons.cell(i) = *cons.cell(i - offset)
		}
	}
}

// Write a char to the specified location.
func (cons *Vga) Write(ch byte, attr Attr, x, y uint16) {
	if x >= cons.width || y >= cons.height {
		return
	}

	*cons.cell((y * cons.width) + x) = (uint16(attr) << 8) | uint16(ch)
}

// Read returns the char and attribute at the specified location. Off-screen
// locations read as a cleared cell.
func (cons *Vga) Read(x, y uint16) (byte, Attr) {
	if x >= cons.width || y >= cons.height {
		return clearChar, clearColor
	}

	val := *cons.cell((y * cons.width) + x)
	return byte(val), Attr(val >> 8)
}

// DriverName implements device.Driver.
func (*Vga) DriverName() string {
	return "vga_text_console"
}

// DriverVersion implements device.Driver.
func (*Vga) DriverVersion() (uint16, uint16, uint16) {
	return 0, 0, 1
}

// DriverInit implements device.Driver.
func (cons *Vga) DriverInit(w io.Writer) *kernel.Error {
	kfmt.Fprintf(w, "%dx%d text mode, framebuffer at 0x%x\n", cons.width, cons.height, cons.fbAddr)
	return nil
}
