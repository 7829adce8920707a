package score

import (
	"math"

	"github.com/Chunn241529/FourT-sub001/pkg/keymap"
	"github.com/Chunn241529/FourT-sub001/pkg/song"
)

// majorProfile is the Krumhansl-Schmuckler major key profile: the perceptual
// weight of each scale degree relative to the tonic.
var majorProfile = [12]float64{
	6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88,
}

var keyNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// centerTarget is the midpoint of the playable range [48, 83].
const centerTarget = 65.5

// EstimateKey detects the major key of a performance and returns the semitone
// shift that moves its tonic to C. Works on a duration-weighted pitch-class
// histogram, so the result is invariant to octave transposition of the input.
func EstimateKey(notes []song.Note) int {
	var hist [12]float64
	for _, n := range notes {
		hist[((n.Pitch%12)+12)%12] += n.Duration()
	}

	bestKey := 0
	maxCorr := -1.0
	for i := 0; i < 12; i++ {
		var rotated [12]float64
		for j := 0; j < 12; j++ {
			rotated[j] = majorProfile[((j-i)%12+12)%12]
		}
		if corr := pearson(hist, rotated); corr > maxCorr {
			maxCorr = corr
			bestKey = i
		}
	}

	return 0 - bestKey
}

// pearson computes the correlation coefficient of two 12-bin vectors. Returns
// 0 when either vector has no variance.
func pearson(a, b [12]float64) float64 {
	var meanA, meanB float64
	for i := 0; i < 12; i++ {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= 12
	meanB /= 12

	var cov, varA, varB float64
	for i := 0; i < 12; i++ {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

// weightedAvgPitch computes the duration-weighted average pitch after the key
// shift. Defaults to middle C when the notes carry no duration.
func weightedAvgPitch(notes []song.Note, shift int) float64 {
	var sum, total float64
	for _, n := range notes {
		d := n.Duration()
		sum += float64(n.Pitch+shift) * d
		total += d
	}
	if total == 0 {
		return 60
	}
	return sum / total
}

// octaveShift returns the multiple of 12 that moves the weighted average
// pitch closest to the center of the playable range.
func octaveShift(avg float64) int {
	return int(math.Round((centerTarget-avg)/12)) * 12
}

// rangeTally counts notes landing inside vs outside the playable range after
// the total shift, before folding. Diagnostic only.
func rangeTally(notes []song.Note, totalShift int) (in, out int) {
	for _, n := range notes {
		p := n.Pitch + totalShift
		if p >= keymap.MinPitch && p <= keymap.MaxPitch {
			in++
		} else {
			out++
		}
	}
	return in, out
}
