// Package tty implements terminals on top of text consoles.
package tty

import (
	"strings"

	"github.com/keyem4251/toyos/device/video/console"
	"github.com/keyem4251/toyos/kernel/sync"
)

const (
	defaultFg = console.LightGrey
	defaultBg = console.Black

	tabWidth = 4
)

// Vt implements a simple terminal that can process LF, CR, BS and TAB
// characters. The terminal uses a console device for its output.
type Vt struct {
	lock sync.Spinlock
	cons console.Console

	width  uint16
	height uint16

	curX    uint16
	curY    uint16
	curAttr console.Attr
}

// AttachTo connects the terminal to cons and moves the cursor to the top
// left corner.
func (t *Vt) AttachTo(cons console.Console) {
	t.lock.Acquire()
	defer t.lock.Release()

	t.cons = cons
	t.width, t.height = cons.Dimensions()
	t.curX = 0
	t.curY = 0

	// Default to lightgrey on black text.
	t.curAttr = makeAttr(defaultFg, defaultBg)
}

// Dimensions returns the width and height of the terminal in characters.
func (t *Vt) Dimensions() (uint16, uint16) {
	return t.width, t.height
}

// Clear clears the terminal.
func (t *Vt) Clear() {
	t.lock.Acquire()
	defer t.lock.Release()

	t.clear()
}

// Position returns the current cursor position (x, y).
func (t *Vt) Position() (uint16, uint16) {
	t.lock.Acquire()
	defer t.lock.Release()

	return t.curX, t.curY
}

// SetPosition sets the current cursor position to (x,y).
func (t *Vt) SetPosition(x, y uint16) {
	t.lock.Acquire()
	defer t.lock.Release()

	if x >= t.width {
		x = t.width - 1
	}

	if y >= t.height {
		y = t.height - 1
	}

	t.curX, t.curY = x, y
}

// Write implements io.Writer.
func (t *Vt) Write(data []byte) (int, error) {
	t.lock.Acquire()
	defer t.lock.Release()

	for _, b := range data {
		t.writeByte(b)
	}

	return len(data), nil
}

// WriteByte implements io.ByteWriter.
func (t *Vt) WriteByte(b byte) error {
	t.lock.Acquire()
	defer t.lock.Release()

	t.writeByte(b)
	return nil
}

// Lines returns the text on the terminal, one string per row, with trailing
// blanks and trailing empty rows removed.
func (t *Vt) Lines() []string {
	t.lock.Acquire()
	defer t.lock.Release()

	var (
		lines = make([]string, 0, t.height)
		row   = make([]byte, t.width)
	)
	for y := uint16(0); y < t.height; y++ {
		for x := uint16(0); x < t.width; x++ {
			row[x], _ = t.cons.Read(x, y)
		}
		lines = append(lines, strings.TrimRight(string(row), " "))
	}

	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func (t *Vt) writeByte(b byte) {
	switch b {
	case '\r':
		t.cr()
	case '\n':
		t.cr()
		t.lf()
	case '\b':
		if t.curX > 0 {
			t.curX--
		}
	case '\t':
		for i := 0; i < tabWidth; i++ {
			t.put(' ')
		}
	default:
		t.put(b)
	}
}

func (t *Vt) put(b byte) {
	t.cons.Write(b, t.curAttr, t.curX, t.curY)
	t.curX++
	if t.curX == t.width {
		t.cr()
		t.lf()
	}
}

// clear clears the terminal.
func (t *Vt) clear() {
	t.cons.Clear(0, 0, t.width, t.height)
}

// cr resets the x coordinate of the terminal cursor to 0.
func (t *Vt) cr() {
	t.curX = 0
}

// lf advances the y coordinate of the terminal cursor by one line scrolling
// the terminal contents if the end of the last terminal line is reached.
func (t *Vt) lf() {
	if t.curY+1 < t.height {
		t.curY++
		return
	}

	t.cons.Scroll(console.Up, 1)
	t.cons.Clear(0, t.height-1, t.width, 1)
}

func makeAttr(fg, bg console.Attr) console.Attr {
	return (bg << 4) | (fg & 0xF)
}
