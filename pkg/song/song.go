// Package song loads standard MIDI files into the flat note model the rest of
// the pipeline works on, repairing corrupt data bytes where possible.
package song

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"
)

// Hand tags which hand plays a note. Assignment happens after loading; every
// note starts on the right hand.
type Hand uint8

const (
	HandLeft  Hand = 0
	HandRight Hand = 1
)

// String returns the hand name.
func (h Hand) String() string {
	if h == HandLeft {
		return "left"
	}
	return "right"
}

// Note is a single sounding note. Immutable once parsed.
type Note struct {
	Pitch    int     `json:"pitch"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Velocity uint8   `json:"velocity"`
	Hand     Hand    `json:"hand"`
}

// Duration returns the note length in seconds.
func (n Note) Duration() float64 {
	return n.End - n.Start
}

// Song is the parsed content of one MIDI file: non-percussion notes in track
// order with absolute times in seconds.
type Song struct {
	Notes    []Note
	Duration float64
}

// percussionChannel is the General MIDI drum channel (zero-based; channel 10
// in 1-based numbering).
const percussionChannel = 9

// defaultTempo is microseconds per quarter note when no tempo event appears.
const defaultTempo = 500000 // 120 BPM

// Load reads and parses a MIDI file. A file whose data bytes are corrupt is
// repaired in memory first; ErrUnrepairable is returned when that fails.
func Load(path string) (*Song, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read MIDI file: %w", err)
	}
	return LoadBytes(data)
}

// LoadBytes parses in-memory MIDI data, attempting byte repair on parse
// failure.
func LoadBytes(data []byte) (*Song, error) {
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		repaired, _, rerr := RepairBytes(data)
		if rerr != nil {
			return nil, fmt.Errorf("failed to parse MIDI: %v: %w", err, rerr)
		}
		s, err = smf.ReadFrom(bytes.NewReader(repaired))
		if err != nil {
			return nil, fmt.Errorf("%w: still unparseable after repair: %v", ErrUnrepairable, err)
		}
	}
	return fromSMF(s), nil
}

// tempoChange is one entry of the absolute-tick tempo map.
type tempoChange struct {
	tick         uint64
	microsPerQtr uint32
}

// tempoMap converts absolute ticks to seconds across tempo changes.
type tempoMap struct {
	resolution float64
	changes    []tempoChange
}

func newTempoMap(s *smf.SMF) *tempoMap {
	tm := &tempoMap{resolution: 480}
	if mt, ok := s.TimeFormat.(smf.MetricTicks); ok {
		tm.resolution = float64(mt.Resolution())
	}

	for _, track := range s.Tracks {
		var tick uint64
		for _, ev := range track {
			tick += uint64(ev.Delta)
			msg := ev.Message
			// Tempo meta event: FF 51 03 tt tt tt
			if len(msg) >= 6 && msg[0] == 0xFF && msg[1] == 0x51 && msg[2] == 0x03 {
				us := uint32(msg[3])<<16 | uint32(msg[4])<<8 | uint32(msg[5])
				if us > 0 {
					tm.changes = append(tm.changes, tempoChange{tick: tick, microsPerQtr: us})
				}
			}
		}
	}
	sort.SliceStable(tm.changes, func(i, j int) bool { return tm.changes[i].tick < tm.changes[j].tick })
	return tm
}

// seconds converts an absolute tick to seconds, walking the tempo segments.
func (tm *tempoMap) seconds(tick uint64) float64 {
	var (
		secs     float64
		prevTick uint64
		tempo    uint32 = defaultTempo
	)
	for _, c := range tm.changes {
		if c.tick >= tick {
			break
		}
		secs += float64(c.tick-prevTick) * float64(tempo) / (1e6 * tm.resolution)
		prevTick = c.tick
		tempo = c.microsPerQtr
	}
	secs += float64(tick-prevTick) * float64(tempo) / (1e6 * tm.resolution)
	return secs
}

// openNote is a note-on waiting for its note-off.
type openNote struct {
	tick     uint64
	velocity uint8
}

func fromSMF(s *smf.SMF) *Song {
	tm := newTempoMap(s)
	song := &Song{}

	for _, track := range s.Tracks {
		var tick uint64
		open := make(map[[2]int][]openNote)

		for _, ev := range track {
			tick += uint64(ev.Delta)
			msg := ev.Message
			if len(msg) < 3 {
				continue
			}

			status := msg[0]
			channel := int(status & 0x0F)
			pitch := int(msg[1])
			velocity := msg[2]

			noteOn := status >= 0x90 && status <= 0x9F && velocity > 0
			noteOff := (status >= 0x80 && status <= 0x8F) ||
				(status >= 0x90 && status <= 0x9F && velocity == 0)

			if channel == percussionChannel && (noteOn || noteOff) {
				continue
			}

			key := [2]int{channel, pitch}
			switch {
			case noteOn:
				open[key] = append(open[key], openNote{tick: tick, velocity: velocity})
			case noteOff:
				// One note-off ends every open note of this pitch except
				// zero-length ones started on the same tick.
				pending := open[key][:0]
				for _, on := range open[key] {
					if on.tick == tick {
						pending = append(pending, on)
						continue
					}
					song.Notes = append(song.Notes, Note{
						Pitch:    pitch,
						Start:    tm.seconds(on.tick),
						End:      tm.seconds(tick),
						Velocity: on.velocity,
						Hand:     HandRight,
					})
				}
				if len(pending) == 0 {
					delete(open, key)
				} else {
					open[key] = pending
				}
			}
		}
		// Note-ons never closed are dropped.
	}

	for _, n := range song.Notes {
		if n.End > song.Duration {
			song.Duration = n.End
		}
	}
	return song
}
