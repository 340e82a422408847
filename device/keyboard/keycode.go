package keyboard

import "fmt"

// KeyCode identifies a physical key. Keys reached through the 0xe0 escape
// prefix have bit 8 set; all other codes equal their scancode set 1 make
// code.
type KeyCode uint16

const extendedFlag = KeyCode(0x100)

// Key codes for keys without a printable representation.
const (
	KeyEscape      = KeyCode(0x01)
	KeyBackspace   = KeyCode(0x0e)
	KeyTab         = KeyCode(0x0f)
	KeyEnter       = KeyCode(0x1c)
	KeyLeftCtrl    = KeyCode(0x1d)
	KeyLeftShift   = KeyCode(0x2a)
	KeyRightShift  = KeyCode(0x36)
	KeyLeftAlt     = KeyCode(0x38)
	KeySpace       = KeyCode(0x39)
	KeyCapsLock    = KeyCode(0x3a)
	KeyF1          = KeyCode(0x3b)
	KeyF10         = KeyCode(0x44)
	KeyNumLock     = KeyCode(0x45)
	KeyScrollLock  = KeyCode(0x46)
	KeyF11         = KeyCode(0x57)
	KeyF12         = KeyCode(0x58)
	KeyRightCtrl   = extendedFlag | 0x1d
	KeyRightAlt    = extendedFlag | 0x38
	KeyHome        = extendedFlag | 0x47
	KeyArrowUp     = extendedFlag | 0x48
	KeyPageUp      = extendedFlag | 0x49
	KeyArrowLeft   = extendedFlag | 0x4b
	KeyArrowRight  = extendedFlag | 0x4d
	KeyEnd         = extendedFlag | 0x4f
	KeyArrowDown   = extendedFlag | 0x50
	KeyPageDown    = extendedFlag | 0x51
	KeyInsert      = extendedFlag | 0x52
	KeyDelete      = extendedFlag | 0x53
	KeyNumpadEnter = extendedFlag | 0x1c
)

var keyNames = map[KeyCode]string{
	KeyEscape:      "Escape",
	KeyBackspace:   "Backspace",
	KeyTab:         "Tab",
	KeyEnter:       "Enter",
	KeyLeftCtrl:    "ControlLeft",
	KeyLeftShift:   "ShiftLeft",
	KeyRightShift:  "ShiftRight",
	KeyLeftAlt:     "AltLeft",
	KeySpace:       "Spacebar",
	KeyCapsLock:    "CapsLock",
	KeyNumLock:     "NumpadLock",
	KeyScrollLock:  "ScrollLock",
	KeyF11:         "F11",
	KeyF12:         "F12",
	KeyRightCtrl:   "ControlRight",
	KeyRightAlt:    "AltRight",
	KeyHome:        "Home",
	KeyArrowUp:     "ArrowUp",
	KeyPageUp:      "PageUp",
	KeyArrowLeft:   "ArrowLeft",
	KeyArrowRight:  "ArrowRight",
	KeyEnd:         "End",
	KeyArrowDown:   "ArrowDown",
	KeyPageDown:    "PageDown",
	KeyInsert:      "Insert",
	KeyDelete:      "Delete",
	KeyNumpadEnter: "NumpadEnter",
}

// String implements fmt.Stringer for KeyCode.
func (k KeyCode) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	if k >= KeyF1 && k <= KeyF10 {
		return fmt.Sprintf("F%d", k-KeyF1+1)
	}
	if k&extendedFlag != 0 {
		return fmt.Sprintf("Key(e0 %02x)", uint16(k&^extendedFlag))
	}
	return fmt.Sprintf("Key(%02x)", uint16(k))
}

// printable maps the make code of every key that produces a character to its
// unshifted and shifted rune (US layout).
var printable = map[KeyCode][2]rune{
	0x02: {'1', '!'}, 0x03: {'2', '@'}, 0x04: {'3', '#'}, 0x05: {'4', '$'},
	0x06: {'5', '%'}, 0x07: {'6', '^'}, 0x08: {'7', '&'}, 0x09: {'8', '*'},
	0x0a: {'9', '('}, 0x0b: {'0', ')'}, 0x0c: {'-', '_'}, 0x0d: {'=', '+'},
	0x10: {'q', 'Q'}, 0x11: {'w', 'W'}, 0x12: {'e', 'E'}, 0x13: {'r', 'R'},
	0x14: {'t', 'T'}, 0x15: {'y', 'Y'}, 0x16: {'u', 'U'}, 0x17: {'i', 'I'},
	0x18: {'o', 'O'}, 0x19: {'p', 'P'}, 0x1a: {'[', '{'}, 0x1b: {']', '}'},
	0x1e: {'a', 'A'}, 0x1f: {'s', 'S'}, 0x20: {'d', 'D'}, 0x21: {'f', 'F'},
	0x22: {'g', 'G'}, 0x23: {'h', 'H'}, 0x24: {'j', 'J'}, 0x25: {'k', 'K'},
	0x26: {'l', 'L'}, 0x27: {';', ':'}, 0x28: {'\'', '"'}, 0x29: {'`', '~'},
	0x2b: {'\\', '|'}, 0x2c: {'z', 'Z'}, 0x2d: {'x', 'X'}, 0x2e: {'c', 'C'},
	0x2f: {'v', 'V'}, 0x30: {'b', 'B'}, 0x31: {'n', 'N'}, 0x32: {'m', 'M'},
	0x33: {',', '<'}, 0x34: {'.', '>'}, 0x35: {'/', '?'},

	KeyEscape:    {0x1b, 0x1b},
	KeyBackspace: {'\b', '\b'},
	KeyTab:       {'\t', '\t'},
	KeyEnter:     {'\n', '\n'},
	KeySpace:     {' ', ' '},
	KeyDelete:    {0x7f, 0x7f},

	// Keypad with num lock on
	0x37: {'*', '*'}, 0x47: {'7', '7'}, 0x48: {'8', '8'}, 0x49: {'9', '9'},
	0x4a: {'-', '-'}, 0x4b: {'4', '4'}, 0x4c: {'5', '5'}, 0x4d: {'6', '6'},
	0x4e: {'+', '+'}, 0x4f: {'1', '1'}, 0x50: {'2', '2'}, 0x51: {'3', '3'},
	0x52: {'0', '0'}, 0x53: {'.', '.'},
	KeyNumpadEnter: {'\n', '\n'},
}

// MakeCode returns the scancode set 1 bytes sent when key is pressed.
func MakeCode(key KeyCode) []byte {
	if key&extendedFlag != 0 {
		return []byte{extendedPrefix, byte(key)}
	}
	return []byte{byte(key)}
}

// BreakCode returns the scancode set 1 bytes sent when key is released.
func BreakCode(key KeyCode) []byte {
	code := MakeCode(key)
	code[len(code)-1] |= releaseBit
	return code
}
