// Package input delivers simulated keyboard and mouse events to the OS.
//
// A Backend is the raw injection surface. On Windows it drives SendInput
// with DirectInput scan codes, which games read through DirectInput and
// raw-input APIs where virtual-key synthesis goes unseen. Elsewhere a
// logging stub stands in so the rest of the program stays testable. The
// Controller sits above a Backend and adds the modifier tap protocol the
// in-game instrument expects.
package input

import (
	"fmt"
	"strings"
)

// Backend injects input events into the OS. Implementations must be safe for
// use from a single goroutine at a time; callers serialize access.
type Backend interface {
	// PressKey holds a key down until ReleaseKey.
	PressKey(key string) error
	// ReleaseKey lets a held key back up.
	ReleaseKey(key string) error
	// ClickMouse sends the down and/or up half of a button click. Buttons
	// are "left", "right", "middle", "x1" and "x2".
	ClickMouse(button string, down, up bool) error
	// Scroll turns the wheel dy notches vertically and dx horizontally.
	Scroll(dx, dy int) error
	// MoveMouse moves the cursor by a relative offset.
	MoveMouse(dx, dy int) error
}

// New returns the input backend for the current platform.
func New() Backend {
	return newBackend()
}

// normalizeButton folds mouse button aliases down to the canonical names
// left, right, middle, x1 and x2.
func normalizeButton(button string) (string, error) {
	switch strings.ToLower(button) {
	case "left", "lmb", "left_click", "mouse1":
		return "left", nil
	case "right", "rmb", "right_click", "mouse2":
		return "right", nil
	case "middle", "mmb", "middle_click", "mouse3":
		return "middle", nil
	case "x1", "mouse4", "back":
		return "x1", nil
	case "x2", "mouse5", "forward":
		return "x2", nil
	}
	return "", fmt.Errorf("unknown mouse button %q", button)
}
