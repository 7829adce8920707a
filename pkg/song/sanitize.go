package song

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gitlab.com/gomidi/midi/v2/smf"
)

// ErrUnrepairable reports a MIDI file whose corrupt data bytes could not be
// fixed by the heuristic repair pass.
var ErrUnrepairable = errors.New("midi file cannot be repaired")

// RepairBytes clamps out-of-range MIDI data bytes in place of a full parse.
// After a Note On/Off, Control Change, Program Change, Channel Pressure, or
// Pitch Bend status byte, the following one or two data bytes are masked into
// 0-127. When that pass changes nothing, a second aggressive pass clamps any
// high byte that follows a data byte. Returns the repaired copy and the
// number of bytes fixed; ErrUnrepairable when nothing was fixable. Best
// effort, not a MIDI validator.
func RepairBytes(data []byte) ([]byte, int, error) {
	out := make([]byte, len(data))
	copy(out, data)

	fixed := 0
	clamp := func(i int) {
		if i < len(out) && out[i] > 127 {
			out[i] &= 0x7F
			fixed++
		}
	}

	for i := 0; i+1 < len(out); i++ {
		switch b := out[i]; {
		case b >= 0x80 && b <= 0x9F: // Note Off / Note On: 2 data bytes
			clamp(i + 1)
			clamp(i + 2)
		case b >= 0xB0 && b <= 0xBF: // Control Change: 2 data bytes
			clamp(i + 1)
			clamp(i + 2)
		case b >= 0xC0 && b <= 0xDF: // Program Change / Channel Pressure: 1 data byte
			clamp(i + 1)
		case b >= 0xE0 && b <= 0xEF: // Pitch Bend: 2 data bytes
			clamp(i + 1)
			clamp(i + 2)
		}
	}

	if fixed == 0 {
		// Aggressive pass: a high byte directly after a data byte cannot be
		// a running-status data byte, so clamp it.
		for i := 1; i < len(out); i++ {
			if out[i] > 127 && out[i-1] < 128 {
				out[i] &= 0x7F
				fixed++
			}
		}
	}

	if fixed == 0 {
		return nil, 0, fmt.Errorf("%w: no repairable bytes found", ErrUnrepairable)
	}
	return out, fixed, nil
}

// SanitizeFile checks a MIDI file and returns a playable path for it: the
// original path when it already parses, otherwise a repaired temporary copy.
// The returned cleanup func removes the temporary file and is always safe to
// call. ErrUnrepairable is returned when repair fails or the repaired bytes
// still do not parse.
func SanitizeFile(path string) (string, func(), error) {
	noop := func() {}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", noop, fmt.Errorf("failed to read MIDI file: %w", err)
	}

	if _, err := smf.ReadFrom(bytes.NewReader(data)); err == nil {
		return path, noop, nil
	}

	repaired, fixed, err := RepairBytes(data)
	if err != nil {
		return "", noop, err
	}
	slog.Debug("repaired corrupt MIDI data bytes", "path", path, "fixed", fixed)

	if _, err := smf.ReadFrom(bytes.NewReader(repaired)); err != nil {
		return "", noop, fmt.Errorf("%w: still unparseable after %d fixes: %v", ErrUnrepairable, fixed, err)
	}

	tmp, err := os.CreateTemp("", "sanitized-*.mid")
	if err != nil {
		return "", noop, fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(repaired); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", noop, fmt.Errorf("failed to write repaired copy: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", noop, fmt.Errorf("failed to write repaired copy: %w", err)
	}

	name := tmp.Name()
	return name, func() { os.Remove(name) }, nil
}
