package score

import (
	"math/rand"
	"testing"

	"github.com/Chunn241529/FourT-sub001/pkg/keymap"
	"github.com/Chunn241529/FourT-sub001/pkg/song"
)

func TestCompileChord(t *testing.T) {
	// A C major triad held for one second on the middle band.
	notes := []song.Note{
		{Pitch: 60, Start: 0, End: 1, Hand: song.HandRight},
		{Pitch: 64, Start: 0, End: 1, Hand: song.HandRight},
		{Pitch: 67, Start: 0, End: 1, Hand: song.HandRight},
	}
	events := Compile(notes, 0, nil)
	if len(events) != 6 {
		t.Fatalf("Compile() produced %d events, want 6", len(events))
	}
	if first := events[0]; first.Act != Press || first.Key != "a" || first.Mod != keymap.ModNone {
		t.Errorf("first event = %+v, want unmodified press of a", first)
	}
	wantKeys := []string{"a", "d", "g"}
	for i, want := range wantKeys {
		if events[i].Act != Press || events[i].Key != want {
			t.Errorf("event %d = %s %s, want press %s", i, events[i].Act, events[i].Key, want)
		}
		if events[i+3].Act != Release || events[i+3].Key != want {
			t.Errorf("event %d = %s %s, want release %s", i+3, events[i+3].Act, events[i+3].Key, want)
		}
	}
}

func TestCompileMapsThroughLayout(t *testing.T) {
	tests := []struct {
		name    string
		pitch   int
		shift   int
		wantKey string
		wantMod keymap.Modifier
	}{
		{"folds high pitch into range", 96, 0, "q", keymap.ModNone},
		{"folds low pitch into range", 36, 0, "z", keymap.ModNone},
		{"sharp uses shift modifier", 61, 0, "a", keymap.ModShift},
		{"flat uses ctrl modifier", 63, 0, "d", keymap.ModCtrl},
		{"transpose applies before folding", 72, 12, "q", keymap.ModNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notes := []song.Note{{Pitch: tt.pitch, Start: 0, End: 1, Hand: song.HandRight}}
			events := Compile(notes, tt.shift, nil)
			if len(events) != 2 {
				t.Fatalf("Compile() produced %d events, want 2", len(events))
			}
			for _, e := range events {
				if e.Key != tt.wantKey || e.Mod != tt.wantMod {
					t.Errorf("%s event = %s+%s, want %s+%s", e.Act, e.Mod, e.Key, tt.wantMod, tt.wantKey)
				}
			}
		})
	}
}

func TestCompileBalancedAndOrdered(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	notes := make([]song.Note, 40)
	for i := range notes {
		start := r.Float64() * 30
		notes[i] = song.Note{
			Pitch: 30 + r.Intn(70),
			Start: start,
			End:   start + 0.05 + r.Float64(),
			Hand:  song.HandRight,
		}
	}
	events := Compile(notes, 0, nil)
	if len(events) != len(notes)*2 {
		t.Fatalf("Compile() produced %d events, want %d", len(events), len(notes)*2)
	}

	open := map[string]int{}
	for i, e := range events {
		if i > 0 && e.Time < events[i-1].Time {
			t.Fatalf("event %d at %v precedes event %d at %v", i, e.Time, i-1, events[i-1].Time)
		}
		id := e.Mod.String() + e.Key
		switch e.Act {
		case Press:
			open[id]++
		case Release:
			open[id]--
		}
	}
	for id, n := range open {
		if n != 0 {
			t.Errorf("unbalanced events for %s: %d presses left open", id, n)
		}
	}
}
