package score

import (
	"sort"

	"github.com/Chunn241529/FourT-sub001/pkg/keymap"
	"github.com/Chunn241529/FourT-sub001/pkg/song"
)

// Compile turns hand-tagged notes into a press/release event stream. Each note
// is shifted by totalShift semitones, folded into the playable range, and
// mapped through the layout. The returned slice is sorted by time; ties keep
// note order, so a press and its release never swap.
func Compile(notes []song.Note, totalShift int, layout *keymap.Layout) []Event {
	if layout == nil {
		layout = keymap.DefaultLayout()
	}
	events := make([]Event, 0, len(notes)*2)
	for _, n := range notes {
		p := keymap.FoldPitch(n.Pitch + totalShift)
		k := layout.MapPitch(p)
		events = append(events, Event{
			Time: n.Start,
			Act:  Press,
			Key:  k.Symbol,
			Mod:  k.Mod,
			Hand: n.Hand,
		})
		events = append(events, Event{
			Time: n.End,
			Act:  Release,
			Key:  k.Symbol,
			Mod:  k.Mod,
			Hand: n.Hand,
		})
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time < events[j].Time
	})
	return events
}
