// Package score turns parsed MIDI notes into a timed key-press script for the
// in-game instrument: key estimation, octave fitting, chromatic mapping, hand
// assignment, and optional humanization.
package score

import (
	"github.com/Chunn241529/FourT-sub001/pkg/keymap"
	"github.com/Chunn241529/FourT-sub001/pkg/song"
)

// Action is what an event does to its key.
type Action string

const (
	Press   Action = "press"
	Release Action = "release"
)

// Event is one scheduled key action. Every press has exactly one
// later-or-equal release with the same key and modifier.
type Event struct {
	Time float64         `json:"time"`
	Act  Action          `json:"action"`
	Key  string          `json:"key"`
	Mod  keymap.Modifier `json:"modifier"`
	Hand song.Hand       `json:"hand"`
}

// Options controls preprocessing.
type Options struct {
	// AutoTranspose enables key estimation. Ignored when ManualTranspose is
	// set.
	AutoTranspose bool
	// ManualTranspose, when non-nil, bypasses estimation entirely. A value
	// of 0 explicitly disables transposition, distinct from unset.
	ManualTranspose *int
	// SmartBass splits chords across hands: highest note right, lowest left.
	SmartBass bool
	// Layout overrides the stock key bindings. Nil uses the default rows.
	Layout *keymap.Layout
}

// Debug carries the analysis diagnostics surfaced to callers for UI feedback.
// None of it affects playback.
type Debug struct {
	EstimatedKey     string  `json:"estimated_key"`
	Transpose        int     `json:"transpose"`
	OctaveShift      int     `json:"octave_shift"`
	InRange          int     `json:"in_range"`
	OutRange         int     `json:"out_range"`
	TotalNotes       int     `json:"total_notes"`
	WeightedAvgPitch float64 `json:"weighted_avg_pitch"`
}

// Result is the full output of preprocessing one MIDI file.
type Result struct {
	Events   []Event `json:"events"`
	Duration float64 `json:"total_duration"`
	Debug    Debug   `json:"debug_info"`
}
