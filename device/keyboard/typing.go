package keyboard

import (
	"github.com/keyem4251/toyos/kernel"
)

// ErrUntypeable is returned by Type for characters that no key of the US
// layout produces.
var ErrUntypeable = &kernel.Error{Module: "keyboard", Message: "character cannot be typed on a US layout"}

type keyStroke struct {
	code    KeyCode
	shifted bool
}

// strokes maps each character of the main key block to the key that types
// it. Keypad keys are left out so every character has exactly one key.
var strokes = func() map[rune]keyStroke {
	m := make(map[rune]keyStroke, 2*len(printable))
	for code, runes := range printable {
		if code >= 0x37 && code != KeySpace {
			continue
		}

		m[runes[0]] = keyStroke{code: code}
		if runes[1] != runes[0] {
			m[runes[1]] = keyStroke{code: code, shifted: true}
		}
	}
	return m
}()

// Type returns the scancode set 1 sequence a keyboard sends when text is
// typed: a press and a release per character, wrapped in a left shift press
// and release for shifted characters.
func Type(text string) ([]byte, *kernel.Error) {
	var out []byte
	for _, r := range text {
		stroke, ok := strokes[r]
		if !ok {
			return nil, ErrUntypeable
		}

		if stroke.shifted {
			out = append(out, MakeCode(KeyLeftShift)...)
		}
		out = append(out, MakeCode(stroke.code)...)
		out = append(out, BreakCode(stroke.code)...)
		if stroke.shifted {
			out = append(out, BreakCode(KeyLeftShift)...)
		}
	}
	return out, nil
}
