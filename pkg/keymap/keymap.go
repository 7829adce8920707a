// Package keymap defines the in-game instrument layout: three octave bands of
// seven natural keys each, with accidentals reached through modifier taps
// rather than separate keys.
package keymap

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Playable pitch range covered by the three bands
const (
	MinPitch = 48 // C3, bottom of the low band
	MaxPitch = 83 // B5, top of the high band
)

// Band boundaries (inclusive)
const (
	lowTop = 59
	medTop = 71
)

// Modifier selects the accidental tap sent alongside a natural key.
type Modifier uint8

const (
	ModNone Modifier = iota
	ModShift
	ModCtrl
)

// String returns the modifier name used in event output.
func (m Modifier) String() string {
	switch m {
	case ModShift:
		return "shift"
	case ModCtrl:
		return "ctrl"
	default:
		return "none"
	}
}

// KeyName returns the keyboard symbol tapped for the modifier, or "" for
// ModNone.
func (m Modifier) KeyName() string {
	switch m {
	case ModShift:
		return "shift"
	case ModCtrl:
		return "ctrl"
	default:
		return ""
	}
}

// MarshalJSON encodes the modifier as its name.
func (m Modifier) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// Band identifies one octave band of the instrument.
type Band int

const (
	BandLow Band = iota
	BandMed
	BandHigh
)

// String returns the band name.
func (b Band) String() string {
	switch b {
	case BandLow:
		return "low"
	case BandMed:
		return "med"
	default:
		return "high"
	}
}

// chromaticStep maps one pitch class to a natural-key column and modifier.
type chromaticStep struct {
	index int
	mod   Modifier
}

// chromaticTable mirrors the instrument's labeled layout
// (#1,2,b3,3,4,#4,5,#5,6,b7,7). The game reaches Eb and Bb as flats on the
// natural key above them (Ctrl+E, Ctrl+B); every other accidental is a sharp
// on the key below. Not a generic sharps-only chromatic scale.
var chromaticTable = [12]chromaticStep{
	0:  {0, ModNone},  // C
	1:  {0, ModShift}, // C#
	2:  {1, ModNone},  // D
	3:  {2, ModCtrl},  // Eb
	4:  {2, ModNone},  // E
	5:  {3, ModNone},  // F
	6:  {3, ModShift}, // F#
	7:  {4, ModNone},  // G
	8:  {4, ModShift}, // G#
	9:  {5, ModNone},  // A
	10: {6, ModCtrl},  // Bb
	11: {6, ModNone},  // B
}

// ChromaticStep returns the natural-key column (0-6) and modifier for a pitch
// class (0-11).
func ChromaticStep(pitchClass int) (int, Modifier) {
	s := chromaticTable[((pitchClass%12)+12)%12]
	return s.index, s.mod
}

// Key is a concrete binding for one playable pitch.
type Key struct {
	Symbol string
	Mod    Modifier
	Band   Band
}

// Layout holds the key symbols backing each band, low to high.
type Layout struct {
	Low  []string `yaml:"low"`
	Med  []string `yaml:"med"`
	High []string `yaml:"high"`
}

// DefaultLayout returns the stock bindings: bottom letter row, home row, top
// letter row.
func DefaultLayout() *Layout {
	return &Layout{
		Low:  []string{"z", "x", "c", "v", "b", "n", "m"},
		Med:  []string{"a", "s", "d", "f", "g", "h", "j"},
		High: []string{"q", "w", "e", "r", "t", "y", "u"},
	}
}

// LoadLayout reads a YAML layout file with low/med/high rows of seven key
// symbols each.
func LoadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout file: %w", err)
	}
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("failed to parse layout file: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layout in %s: %w", path, err)
	}
	return &l, nil
}

// Validate checks that each band has exactly seven non-empty, distinct
// symbols.
func (l *Layout) Validate() error {
	rows := map[string][]string{"low": l.Low, "med": l.Med, "high": l.High}
	seen := make(map[string]string, 21)
	for _, name := range []string{"low", "med", "high"} {
		row := rows[name]
		if len(row) != 7 {
			return fmt.Errorf("band %s has %d keys, want 7", name, len(row))
		}
		for _, sym := range row {
			if sym == "" {
				return fmt.Errorf("band %s contains an empty key symbol", name)
			}
			if prev, dup := seen[sym]; dup {
				return fmt.Errorf("key %q bound in both %s and %s", sym, prev, name)
			}
			seen[sym] = name
		}
	}
	return nil
}

// FoldPitch wraps a pitch by whole octaves until it lies inside
// [MinPitch, MaxPitch]. Simple modular wrap, chosen for interval consistency
// over local optimality.
func FoldPitch(p int) int {
	for p < MinPitch {
		p += 12
	}
	for p > MaxPitch {
		p -= 12
	}
	return p
}

// BandFor returns the band containing an in-range pitch.
func BandFor(p int) Band {
	switch {
	case p <= lowTop:
		return BandLow
	case p <= medTop:
		return BandMed
	default:
		return BandHigh
	}
}

func (l *Layout) row(b Band) []string {
	switch b {
	case BandLow:
		return l.Low
	case BandMed:
		return l.Med
	default:
		return l.High
	}
}

// MapPitch folds a shifted pitch into the playable range and resolves it to a
// key binding.
func (l *Layout) MapPitch(p int) Key {
	p = FoldPitch(p)
	band := BandFor(p)
	idx, mod := ChromaticStep(p % 12)
	return Key{Symbol: l.row(band)[idx], Mod: mod, Band: band}
}
