package aggregator

import "gonum.org/v1/gonum/interp"

const (
	waveformGridPoints   = 129
	peakMinProminence    = 1.0
	valleyMinProminence  = 3.0
	twoPeakRssiTolerance = 3.0
)

type inflection struct {
	timestamp uint64
	value     float64
}

// waveformTimestamp implements §4.4 step 3: normalise timestamps to
// [0,1], resample RSSI onto a uniform 129-point grid, find peaks and
// valleys by prominence, and apply the decision table. It falls back to
// the weighted centroid whenever the peak/valley shape doesn't match any
// of the table's rows.
func waveformTimestamp(seq []Detection, peak float64) (uint64, uint64) {
	t0 := float64(seq[0].Timestamp)
	t1 := float64(seq[len(seq)-1].Timestamp)
	span := t1 - t0
	if span <= 0 {
		return weightedCentroid(seq, peak)
	}

	xs := make([]float64, len(seq))
	ys := make([]float64, len(seq))
	for i, d := range seq {
		xs[i] = (float64(d.Timestamp) - t0) / span
		ys[i] = d.RSSI
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return weightedCentroid(seq, peak)
	}

	grid := make([]float64, waveformGridPoints)
	for i := range grid {
		frac := float64(i) / float64(waveformGridPoints-1)
		grid[i] = pl.Predict(frac)
	}

	peakIdx := findPeaks(grid, peakMinProminence)
	valleyIdx := boundedValleys(grid, valleyMinProminence)

	peaks := toInflections(peakIdx, grid, t0, span)
	valleys := toInflections(valleyIdx, grid, t0, span)

	switch {
	case len(peaks) == 1:
		return peaks[0].timestamp, 0

	case len(peaks) == 3 && (len(valleys) == 2 || len(valleys) == 3):
		dur := valleys[len(valleys)-1].timestamp - valleys[0].timestamp
		return peaks[1].timestamp, dur

	case len(peaks) == 2 && (len(valleys) == 2 || len(valleys) == 3):
		dur := valleys[len(valleys)-1].timestamp - valleys[0].timestamp
		return midpoint(peaks[0], peaks[1]), dur

	case len(peaks) == 2:
		dRssi := peaks[1].value - peaks[0].value
		if dRssi < 0 {
			dRssi = -dRssi
		}
		dur := uint64(0)
		if dRssi < twoPeakRssiTolerance {
			if peaks[1].timestamp > peaks[0].timestamp {
				dur = peaks[1].timestamp - peaks[0].timestamp
			} else {
				dur = peaks[0].timestamp - peaks[1].timestamp
			}
		}
		return midpoint(peaks[0], peaks[1]), dur

	default:
		return weightedCentroid(seq, peak)
	}
}

func midpoint(a, b inflection) uint64 {
	if a.timestamp > b.timestamp {
		a, b = b, a
	}
	return a.timestamp + (b.timestamp-a.timestamp)/2
}

func toInflections(idx []int, grid []float64, t0, span float64) []inflection {
	out := make([]inflection, len(idx))
	for i, gi := range idx {
		frac := float64(gi) / float64(waveformGridPoints-1)
		out[i] = inflection{
			timestamp: uint64(t0 + frac*span),
			value:     grid[gi],
		}
	}
	return out
}

// boundedValleys finds interior valleys by prominence and adds the grid's
// own endpoints, which the RSSI waveform necessarily rises away from and
// falls back toward at the edges of a passing but which an interior-only
// local-minimum scan can never report on its own.
func boundedValleys(grid []float64, minProminence float64) []int {
	interior := findPeaks(negate(grid), minProminence)

	out := []int{0}
	out = append(out, interior...)
	last := len(grid) - 1
	if len(out) == 0 || out[len(out)-1] != last {
		out = append(out, last)
	}
	return out
}

func negate(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = -x
	}
	return out
}

// findPeaks returns the indices of every interior local maximum of y
// whose prominence is at least minProminence, following the same
// base-level construction as scipy's peak_prominences.
func findPeaks(y []float64, minProminence float64) []int {
	var out []int
	for i := 1; i < len(y)-1; i++ {
		if y[i] > y[i-1] && y[i] > y[i+1] {
			if prominence(y, i) >= minProminence {
				out = append(out, i)
			}
		}
	}
	return out
}

func prominence(y []float64, i int) float64 {
	v := y[i]

	leftMin := v
	for j := i - 1; j >= 0; j-- {
		if y[j] > v {
			break
		}
		if y[j] < leftMin {
			leftMin = y[j]
		}
	}

	rightMin := v
	for j := i + 1; j < len(y); j++ {
		if y[j] > v {
			break
		}
		if y[j] < rightMin {
			rightMin = y[j]
		}
	}

	base := leftMin
	if rightMin > base {
		base = rightMin
	}
	return v - base
}
