package symbolreader

import "math"

// PolyphaseBank is the external DSP primitive contract for the resampling
// filterbank: Push admits one raw sample, Execute evaluates sub-filter k
// against the current delay line contents.
type PolyphaseBank interface {
	Push(z complex128)
	Execute(k int) complex128
	NumFilters() int
	Reset()
}

// rrcBank is a from-scratch polyphase decomposition of a windowed-sinc
// pulse-shaping filter. It is not derived from any vendor RRC table; see
// the grounding notes for why the pack's cgo DSP libraries were not wired
// in here instead.
type rrcBank struct {
	numFilters    int
	tapsPerFilter int
	taps          [][]float64 // [numFilters][tapsPerFilter]
	delay         []complex128
	pos           int
}

// NewRRCBank builds a numFilters-phase interpolating filterbank with the
// given per-phase group delay, measured in raw input samples.
func NewRRCBank(numFilters, delaySamples int) *rrcBank {
	tapsPerFilter := 2*delaySamples + 1
	prototypeLen := tapsPerFilter * numFilters
	prototype := make([]float64, prototypeLen)
	center := float64(prototypeLen-1) / 2

	for m := 0; m < prototypeLen; m++ {
		t := (float64(m) - center) / float64(numFilters)
		prototype[m] = sinc(t) * hann(float64(m), float64(prototypeLen-1))
	}

	taps := make([][]float64, numFilters)
	for k := 0; k < numFilters; k++ {
		taps[k] = make([]float64, tapsPerFilter)
		for j := 0; j < tapsPerFilter; j++ {
			idx := j*numFilters + k
			if idx < prototypeLen {
				taps[k][j] = prototype[idx]
			}
		}
	}

	return &rrcBank{
		numFilters:    numFilters,
		tapsPerFilter: tapsPerFilter,
		taps:          taps,
		delay:         make([]complex128, tapsPerFilter),
	}
}

func sinc(t float64) float64 {
	if t == 0 {
		return 1
	}
	x := math.Pi * t
	return math.Sin(x) / x
}

func hann(m, span float64) float64 {
	if span == 0 {
		return 1
	}
	return 0.5 - 0.5*math.Cos(2*math.Pi*m/span)
}

func (b *rrcBank) Push(z complex128) {
	copy(b.delay, b.delay[1:])
	b.delay[len(b.delay)-1] = z
}

func (b *rrcBank) Execute(k int) complex128 {
	var acc complex128
	row := b.taps[k]
	for j, tap := range row {
		acc += b.delay[j] * complex(tap, 0)
	}
	return acc
}

func (b *rrcBank) NumFilters() int {
	return b.numFilters
}

func (b *rrcBank) Reset() {
	for i := range b.delay {
		b.delay[i] = 0
	}
	b.pos = 0
}
