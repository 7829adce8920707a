package keymap

import (
	"os"
	"path/filepath"
	"testing"
)

func TestChromaticTableBijection(t *testing.T) {
	type cell struct {
		index int
		mod   Modifier
	}
	seen := make(map[cell]int)
	for pc := 0; pc < 12; pc++ {
		idx, mod := ChromaticStep(pc)
		if idx < 0 || idx > 6 {
			t.Errorf("pitch class %d maps to key index %d, want 0-6", pc, idx)
		}
		c := cell{idx, mod}
		if prev, dup := seen[c]; dup {
			t.Errorf("pitch classes %d and %d both map to (%d, %s)", prev, pc, idx, mod)
		}
		seen[c] = pc
	}
	if len(seen) != 12 {
		t.Errorf("chromatic table covers %d distinct cells, want 12", len(seen))
	}
}

func TestChromaticTableLayout(t *testing.T) {
	tests := []struct {
		pc    int
		index int
		mod   Modifier
	}{
		{0, 0, ModNone},
		{1, 0, ModShift},
		{2, 1, ModNone},
		{3, 2, ModCtrl}, // Eb, not D#
		{4, 2, ModNone},
		{5, 3, ModNone},
		{6, 3, ModShift},
		{7, 4, ModNone},
		{8, 4, ModShift},
		{9, 5, ModNone},
		{10, 6, ModCtrl}, // Bb, not A#
		{11, 6, ModNone},
	}

	for _, tt := range tests {
		idx, mod := ChromaticStep(tt.pc)
		if idx != tt.index || mod != tt.mod {
			t.Errorf("ChromaticStep(%d) = (%d, %s), want (%d, %s)", tt.pc, idx, mod, tt.index, tt.mod)
		}
	}
}

func TestFoldPitch(t *testing.T) {
	for p := -24; p <= 140; p++ {
		folded := FoldPitch(p)
		if folded < MinPitch || folded > MaxPitch {
			t.Fatalf("FoldPitch(%d) = %d, outside [%d, %d]", p, folded, MinPitch, MaxPitch)
		}
		if (folded-p)%12 != 0 {
			t.Fatalf("FoldPitch(%d) = %d, not an octave shift", p, folded)
		}
	}
}

func TestBandFor(t *testing.T) {
	tests := []struct {
		pitch int
		band  Band
	}{
		{48, BandLow},
		{59, BandLow},
		{60, BandMed},
		{71, BandMed},
		{72, BandHigh},
		{83, BandHigh},
	}

	for _, tt := range tests {
		if got := BandFor(tt.pitch); got != tt.band {
			t.Errorf("BandFor(%d) = %s, want %s", tt.pitch, got, tt.band)
		}
	}
}

func TestMapPitch(t *testing.T) {
	l := DefaultLayout()

	tests := []struct {
		name   string
		pitch  int
		symbol string
		mod    Modifier
		band   Band
	}{
		{"middle C", 60, "a", ModNone, BandMed},
		{"C sharp 4", 61, "a", ModShift, BandMed},
		{"E flat 3", 51, "c", ModCtrl, BandLow},
		{"B flat 5", 82, "u", ModCtrl, BandHigh},
		{"low C", 48, "z", ModNone, BandLow},
		{"top B", 83, "u", ModNone, BandHigh},
		{"above range folds down twice", 96, "q", ModNone, BandHigh},
		{"below range folds up", 36, "z", ModNone, BandLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := l.MapPitch(tt.pitch)
			if k.Symbol != tt.symbol || k.Mod != tt.mod || k.Band != tt.band {
				t.Errorf("MapPitch(%d) = (%q, %s, %s), want (%q, %s, %s)",
					tt.pitch, k.Symbol, k.Mod, k.Band, tt.symbol, tt.mod, tt.band)
			}
		})
	}
}

func TestModifierKeyName(t *testing.T) {
	if got := ModShift.KeyName(); got != "shift" {
		t.Errorf("ModShift.KeyName() = %q, want %q", got, "shift")
	}
	if got := ModCtrl.KeyName(); got != "ctrl" {
		t.Errorf("ModCtrl.KeyName() = %q, want %q", got, "ctrl")
	}
	if got := ModNone.KeyName(); got != "" {
		t.Errorf("ModNone.KeyName() = %q, want empty", got)
	}
}

func TestLoadLayout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "layout.yaml")
	content := `low:  [z, x, c, v, b, n, m]
med:  [a, s, d, f, g, h, j]
high: [q, w, e, r, t, y, u]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	l, err := LoadLayout(path)
	if err != nil {
		t.Fatalf("LoadLayout() error: %v", err)
	}
	if k := l.MapPitch(60); k.Symbol != "a" {
		t.Errorf("loaded layout maps 60 to %q, want %q", k.Symbol, "a")
	}
}

func TestLayoutValidate(t *testing.T) {
	tests := []struct {
		name   string
		layout Layout
	}{
		{
			"short band",
			Layout{Low: []string{"z"}, Med: []string{"a", "s", "d", "f", "g", "h", "j"}, High: []string{"q", "w", "e", "r", "t", "y", "u"}},
		},
		{
			"duplicate across bands",
			Layout{
				Low:  []string{"z", "x", "c", "v", "b", "n", "m"},
				Med:  []string{"z", "s", "d", "f", "g", "h", "j"},
				High: []string{"q", "w", "e", "r", "t", "y", "u"},
			},
		},
		{
			"empty symbol",
			Layout{
				Low:  []string{"z", "x", "c", "v", "b", "n", ""},
				Med:  []string{"a", "s", "d", "f", "g", "h", "j"},
				High: []string{"q", "w", "e", "r", "t", "y", "u"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.layout.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}

	if err := DefaultLayout().Validate(); err != nil {
		t.Errorf("DefaultLayout().Validate() error: %v", err)
	}
}
