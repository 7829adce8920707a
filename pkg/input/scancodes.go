package input

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnmappedKey reports a key name with no scan-code entry. Callers get the
// error instead of a silently skipped event.
var ErrUnmappedKey = errors.New("key has no scan code")

// scanCodes maps key names to DirectInput (set 1) scan codes. These address
// physical key positions, so games reading DirectInput or raw input receive
// them even when they ignore synthesized virtual keys.
var scanCodes = map[string]uint16{
	"esc":    0x01,
	"escape": 0x01,

	"1": 0x02,
	"2": 0x03,
	"3": 0x04,
	"4": 0x05,
	"5": 0x06,
	"6": 0x07,
	"7": 0x08,
	"8": 0x09,
	"9": 0x0A,
	"0": 0x0B,
	"-": 0x0C,
	"=": 0x0D,

	"backspace": 0x0E,
	"tab":       0x0F,

	"q": 0x10,
	"w": 0x11,
	"e": 0x12,
	"r": 0x13,
	"t": 0x14,
	"y": 0x15,
	"u": 0x16,
	"i": 0x17,
	"o": 0x18,
	"p": 0x19,
	"[": 0x1A,
	"]": 0x1B,

	"enter":  0x1C,
	"return": 0x1C,
	"ctrl":   0x1D,
	"lctrl":  0x1D,

	"a": 0x1E,
	"s": 0x1F,
	"d": 0x20,
	"f": 0x21,
	"g": 0x22,
	"h": 0x23,
	"j": 0x24,
	"k": 0x25,
	"l": 0x26,
	";": 0x27,
	"'": 0x28,
	"`": 0x29,

	"shift":  0x2A,
	"lshift": 0x2A,
	"\\":     0x2B,

	"z": 0x2C,
	"x": 0x2D,
	"c": 0x2E,
	"v": 0x2F,
	"b": 0x30,
	"n": 0x31,
	"m": 0x32,
	",": 0x33,
	".": 0x34,
	"/": 0x35,

	"rshift": 0x36,
	"alt":    0x38,
	"lalt":   0x38,
	"space":  0x39,

	"f1":  0x3B,
	"f2":  0x3C,
	"f3":  0x3D,
	"f4":  0x3E,
	"f5":  0x3F,
	"f6":  0x40,
	"f7":  0x41,
	"f8":  0x42,
	"f9":  0x43,
	"f10": 0x44,
	"f11": 0x57,
	"f12": 0x58,

	"up":     0xC8,
	"left":   0xCB,
	"right":  0xCD,
	"down":   0xD0,
	"insert": 0xD2,
	"delete": 0xD3,
}

// extendedCodes marks the navigation keys that need KEYEVENTF_EXTENDEDKEY,
// the positions set 1 reaches through an 0xE0 prefix.
var extendedCodes = map[uint16]bool{
	0xC8: true, // up
	0xCB: true, // left
	0xCD: true, // right
	0xD0: true, // down
	0xD2: true, // insert
	0xD3: true, // delete
}

// ScanCode resolves a key name to its DirectInput scan code. Names are case
// insensitive.
func ScanCode(key string) (uint16, error) {
	code, ok := scanCodes[strings.ToLower(key)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnmappedKey, key)
	}
	return code, nil
}

// isExtended reports whether the code needs KEYEVENTF_EXTENDEDKEY.
func isExtended(code uint16) bool {
	return extendedCodes[code]
}
