package score

import (
	"math"
	"sort"

	"github.com/Chunn241529/FourT-sub001/pkg/song"
)

// chordWindow groups notes struck within 10ms when deciding chord roles.
const chordWindow = 0.010

// AssignHands splits a performance between the two in-game hands. In simple
// mode every note goes to the right hand. With smart bass enabled, notes
// striking within the same 10ms window form a chord: the highest note goes to
// the right hand as melody and the lowest to the left as bass. Interior chord
// tones are dropped because each hand can only voice one note per strike.
func AssignHands(notes []song.Note, smartBass bool) []song.Note {
	if !smartBass {
		out := make([]song.Note, len(notes))
		for i, n := range notes {
			n.Hand = song.HandRight
			out[i] = n
		}
		return out
	}

	buckets := make(map[int64][]song.Note)
	for _, n := range notes {
		b := int64(math.Round(n.Start / chordWindow))
		buckets[b] = append(buckets[b], n)
	}
	order := make([]int64, 0, len(buckets))
	for b := range buckets {
		order = append(order, b)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	out := make([]song.Note, 0, len(notes))
	for _, b := range order {
		chord := buckets[b]
		sort.SliceStable(chord, func(i, j int) bool { return chord[i].Pitch < chord[j].Pitch })
		melody := chord[len(chord)-1]
		melody.Hand = song.HandRight
		out = append(out, melody)
		if len(chord) > 1 {
			bass := chord[0]
			bass.Hand = song.HandLeft
			out = append(out, bass)
		}
	}
	return out
}
