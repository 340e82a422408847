// Package keyboard drives the PS/2 keyboard: an IRQ1 handler that forwards
// raw scancodes and a decoder that turns scancode set 1 sequences into keys
// using the US layout.
package keyboard

const (
	extendedPrefix = byte(0xe0)
	releaseBit     = byte(0x80)
)

// KeyState describes whether a key was pressed or released.
type KeyState uint8

const (
	// KeyDown indicates a key press (or typematic repeat).
	KeyDown KeyState = iota

	// KeyUp indicates a key release.
	KeyUp
)

// KeyEvent is a single press or release of a key.
type KeyEvent struct {
	Code  KeyCode
	State KeyState
}

// DecodedKey is the result of a key press: either a character or, for keys
// that do not produce one, the raw key code.
type DecodedKey struct {
	// Rune is the produced character or 0 for raw keys.
	Rune rune

	Code KeyCode
}

// String returns the character for printable keys and the key name
// otherwise.
func (k DecodedKey) String() string {
	if k.Rune != 0 {
		return string(k.Rune)
	}
	return k.Code.String()
}

// Decoder converts a stream of scancode set 1 bytes into key presses. It
// tracks the shift and caps lock state across calls. The zero value is ready
// for use.
type Decoder struct {
	extended   bool
	leftShift  bool
	rightShift bool
	capsLock   bool
}

// AddByte feeds a scancode byte to the decoder and returns the key event it
// completes, if any. The 0xe0 prefix completes nothing on its own.
func (d *Decoder) AddByte(scancode byte) (KeyEvent, bool) {
	if scancode == extendedPrefix {
		d.extended = true
		return KeyEvent{}, false
	}

	event := KeyEvent{Code: KeyCode(scancode &^ releaseBit), State: KeyDown}
	if scancode&releaseBit != 0 {
		event.State = KeyUp
	}
	if d.extended {
		event.Code |= extendedFlag
		d.extended = false
	}

	// 0x00 signals a buffer overrun in the controller
	if event.Code == 0 {
		return KeyEvent{}, false
	}
	return event, true
}

// ProcessKeyEvent updates the modifier state and returns the key produced by
// event. Releases and modifier keys produce nothing.
func (d *Decoder) ProcessKeyEvent(event KeyEvent) (DecodedKey, bool) {
	down := event.State == KeyDown

	switch event.Code {
	case KeyLeftShift:
		d.leftShift = down
		return DecodedKey{}, false
	case KeyRightShift:
		d.rightShift = down
		return DecodedKey{}, false
	case KeyCapsLock:
		if down {
			d.capsLock = !d.capsLock
		}
		return DecodedKey{}, false
	}

	if !down {
		return DecodedKey{}, false
	}

	runes, ok := printable[event.Code]
	if !ok {
		return DecodedKey{Code: event.Code}, true
	}

	shifted := d.leftShift || d.rightShift
	if isLetter(runes[0]) && d.capsLock {
		shifted = !shifted
	}
	if shifted {
		return DecodedKey{Rune: runes[1], Code: event.Code}, true
	}
	return DecodedKey{Rune: runes[0], Code: event.Code}, true
}

// Decode feeds scancode to the decoder and returns the completed key press,
// if any.
func (d *Decoder) Decode(scancode byte) (DecodedKey, bool) {
	event, ok := d.AddByte(scancode)
	if !ok {
		return DecodedKey{}, false
	}
	return d.ProcessKeyEvent(event)
}

func isLetter(r rune) bool {
	return r >= 'a' && r <= 'z'
}
