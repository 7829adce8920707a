package score

import (
	"math/rand"
	"sort"
	"time"
)

const (
	// humanizeGroup is the window within which events drift together, keeping
	// chord strikes coherent.
	humanizeGroup = 0.005
	// humanizeSigma is the standard deviation of the per-group drift.
	humanizeSigma = 0.008
	// humanizeMicro bounds the extra per-event jitter inside a group.
	humanizeMicro = 0.001
)

// Humanize applies natural timing drift to an event stream. Events within 5ms
// of a group's first member share one normally distributed offset so chords
// stay struck together, and each event gets a sub-millisecond nudge on top.
// Times never go negative and ordering is restored afterwards. The input
// slice is left untouched. A nil source seeds from the clock.
func Humanize(events []Event, r *rand.Rand) []Event {
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	out := make([]Event, len(events))
	copy(out, events)

	for i := 0; i < len(out); {
		j := i + 1
		for j < len(out) && out[j].Time-out[i].Time <= humanizeGroup {
			j++
		}
		drift := r.NormFloat64() * humanizeSigma
		for k := i; k < j; k++ {
			t := out[k].Time + drift + (r.Float64()*2-1)*humanizeMicro
			if t < 0 {
				t = 0
			}
			out[k].Time = t
		}
		i = j
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}
