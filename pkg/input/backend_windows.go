//go:build windows && (amd64 || arm64)

package input

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	inputMouse    = 0
	inputKeyboard = 1

	keyeventfExtendedKey = 0x0001
	keyeventfKeyUp       = 0x0002
	keyeventfScancode    = 0x0008

	mouseeventfMove       = 0x0001
	mouseeventfLeftDown   = 0x0002
	mouseeventfLeftUp     = 0x0004
	mouseeventfRightDown  = 0x0008
	mouseeventfRightUp    = 0x0010
	mouseeventfMiddleDown = 0x0020
	mouseeventfMiddleUp   = 0x0040
	mouseeventfXDown      = 0x0080
	mouseeventfXUp        = 0x0100
	mouseeventfWheel      = 0x0800
	mouseeventfHWheel     = 0x1000

	// One wheel notch in SendInput units.
	wheelDelta = 120
)

var (
	user32        = windows.NewLazySystemDLL("user32.dll")
	procSendInput = user32.NewProc("SendInput")
)

// keyboardInput is INPUT with the KEYBDINPUT arm of the union, padded to the
// 40 bytes a 64-bit INPUT occupies.
type keyboardInput struct {
	typ       uint32
	_         uint32
	vk        uint16
	scan      uint16
	flags     uint32
	time      uint32
	_         uint32
	extraInfo uintptr
	_         [8]byte
}

// mouseInput is INPUT with the MOUSEINPUT arm of the union.
type mouseInput struct {
	typ       uint32
	_         uint32
	dx        int32
	dy        int32
	mouseData uint32
	flags     uint32
	time      uint32
	_         uint32
	extraInfo uintptr
}

// winBackend injects events through SendInput using scan codes, which reach
// DirectInput and raw-input readers that ignore synthesized virtual keys.
type winBackend struct{}

func newBackend() Backend {
	return &winBackend{}
}

func sendInput(ptr unsafe.Pointer, size uintptr) error {
	ret, _, err := procSendInput.Call(1, uintptr(ptr), size)
	if ret != 1 {
		return fmt.Errorf("SendInput: %w", err)
	}
	return nil
}

func (b *winBackend) key(name string, flags uint32) error {
	code, err := ScanCode(name)
	if err != nil {
		return err
	}
	flags |= keyeventfScancode
	if isExtended(code) {
		flags |= keyeventfExtendedKey
	}
	in := keyboardInput{typ: inputKeyboard, scan: code, flags: flags}
	return sendInput(unsafe.Pointer(&in), unsafe.Sizeof(in))
}

func (b *winBackend) PressKey(key string) error {
	return b.key(key, 0)
}

func (b *winBackend) ReleaseKey(key string) error {
	return b.key(key, keyeventfKeyUp)
}

func sendMouse(dx, dy int32, data, flags uint32) error {
	in := mouseInput{typ: inputMouse, dx: dx, dy: dy, mouseData: data, flags: flags}
	return sendInput(unsafe.Pointer(&in), unsafe.Sizeof(in))
}

func (b *winBackend) ClickMouse(button string, down, up bool) error {
	name, err := normalizeButton(button)
	if err != nil {
		return err
	}
	var flagsDown, flagsUp, data uint32
	switch name {
	case "left":
		flagsDown, flagsUp = mouseeventfLeftDown, mouseeventfLeftUp
	case "right":
		flagsDown, flagsUp = mouseeventfRightDown, mouseeventfRightUp
	case "middle":
		flagsDown, flagsUp = mouseeventfMiddleDown, mouseeventfMiddleUp
	case "x1":
		flagsDown, flagsUp, data = mouseeventfXDown, mouseeventfXUp, 1
	case "x2":
		flagsDown, flagsUp, data = mouseeventfXDown, mouseeventfXUp, 2
	}
	if down {
		if err := sendMouse(0, 0, data, flagsDown); err != nil {
			return err
		}
	}
	if up {
		return sendMouse(0, 0, data, flagsUp)
	}
	return nil
}

func (b *winBackend) Scroll(dx, dy int) error {
	if dy != 0 {
		if err := sendMouse(0, 0, uint32(int32(dy*wheelDelta)), mouseeventfWheel); err != nil {
			return err
		}
	}
	if dx != 0 {
		return sendMouse(0, 0, uint32(int32(dx*wheelDelta)), mouseeventfHWheel)
	}
	return nil
}

func (b *winBackend) MoveMouse(dx, dy int) error {
	return sendMouse(int32(dx), int32(dy), 0, mouseeventfMove)
}
