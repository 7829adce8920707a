package score

import (
	"fmt"

	"github.com/Chunn241529/FourT-sub001/pkg/song"
)

// Preprocess loads a MIDI file and compiles it into a playable event stream.
func Preprocess(path string, opts Options) (*Result, error) {
	sng, err := song.Load(path)
	if err != nil {
		return nil, fmt.Errorf("preprocess %s: %w", path, err)
	}
	return Process(sng, opts), nil
}

// Process compiles a loaded song into a playable event stream. The pipeline
// picks a key shift (manual override, detected, or none), centers the result
// on the playable range by whole octaves, assigns hands, and maps every note
// through the layout. The debug block records each decision.
func Process(sng *song.Song, opts Options) *Result {
	if len(sng.Notes) == 0 {
		return &Result{
			Events: []Event{},
			Debug:  Debug{EstimatedKey: "C Major"},
		}
	}

	keyShift := 0
	estimatedKey := "C Major"
	switch {
	case opts.ManualTranspose != nil:
		keyShift = *opts.ManualTranspose
	case opts.AutoTranspose:
		keyShift = EstimateKey(sng.Notes)
		estimatedKey = keyNames[(12-keyShift)%12] + " Major"
	}

	avg := weightedAvgPitch(sng.Notes, keyShift)
	octave := octaveShift(avg)
	total := keyShift + octave
	in, out := rangeTally(sng.Notes, total)

	played := AssignHands(sng.Notes, opts.SmartBass)
	events := Compile(played, total, opts.Layout)

	return &Result{
		Events:   events,
		Duration: sng.Duration,
		Debug: Debug{
			EstimatedKey:     estimatedKey,
			Transpose:        total,
			OctaveShift:      octave,
			InRange:          in,
			OutRange:         out,
			TotalNotes:       len(sng.Notes),
			WeightedAvgPitch: avg,
		},
	}
}
