// Package symbolreader owns per-burst symbol timing recovery, phase and
// frequency tracking, equalisation, and BPSK soft-demodulation. A single
// Reader is created once and reused across bursts; it is neither copyable
// nor movable, matching the scoped-ownership rule for its DSP handles.
package symbolreader

import (
	"math"
	"math/cmplx"

	"github.com/racetiming/raceloop/internal/frame"
)

const (
	numFilters       = 4 // sub-filters per raw sample; with SamplesPerSymbol this gives 16 grid phases per symbol
	samplesPerSymbol = frame.SamplesPerSymbol
	preambleLength   = frame.PreambleSize
	filterDelay      = frame.FilterDelay

	costasAlpha = 0.0025
	costasBeta  = 0.05

	strongSignalThreshold = 16.0
)

// ReserveLength is the number of trailing raw samples from the previous
// buffer that must be kept around so a preamble starting before the
// current buffer can still be read in full.
const ReserveLength = preambleLength * samplesPerSymbol

// Reader implements the symbol-synchronisation, tracking and demodulation
// pipeline described for SymbolReader.
type Reader struct {
	bank  PolyphaseBank
	eq    LmsEqualizer
	demod BpskSoftDemod

	symsyncSym  int
	symsyncBank int
	symbolScale float64
	phase       float64
	frequency   float64
	correction  complex128
}

// New constructs a Reader around the three external DSP primitives. The
// default constructors below (NewRRCBank, NewLMS3, NewBpskDemod) are the
// from-scratch implementations this module ships; a caller wiring a real
// vendor primitive only needs to satisfy the three interfaces.
func New() *Reader {
	return &Reader{
		bank:  NewRRCBank(numFilters, filterDelay*samplesPerSymbol),
		eq:    NewLMS3(),
		demod: NewBpskDemod(),
	}
}

// ReadPreamble trains symbol timing, amplitude, phase and frequency from a
// window of exactly ReserveLength raw samples ending at the end of the
// window in which the preamble match was detected (so the window holds
// the preamble itself), then emits preambleLength soft bits
// into fr. The caller is responsible for assembling lookback out of the
// previous buffer's reserve tail and the current buffer when the preamble
// starts before the current buffer's first sample.
func (r *Reader) ReadPreamble(fr *frame.Frame, lookback []complex64) bool {
	if len(lookback) != ReserveLength {
		return false
	}

	r.bank.Reset()
	r.eq.Reset()
	r.demod.Reset()
	r.phase = 0
	r.frequency = 0

	grid := make([][16]complex128, preambleLength)
	combinedPhases := samplesPerSymbol * numFilters // == 16

	for sym := 0; sym < preambleLength; sym++ {
		for s := 0; s < samplesPerSymbol; s++ {
			raw := complex128(lookback[sym*samplesPerSymbol+s])
			r.bank.Push(raw)
			for k := 0; k < numFilters; k++ {
				grid[sym][s*numFilters+k] = r.bank.Execute(k)
			}
		}
	}

	bestPhase := 0
	var bestEnergy float64
	for phase := 0; phase < combinedPhases; phase++ {
		var energy float64
		for sym := filterDelay; sym < preambleLength; sym++ {
			m := cmplx.Abs(grid[sym][phase])
			energy += m * m
		}
		if energy > bestEnergy {
			bestEnergy = energy
			bestPhase = phase
		}
	}

	r.symsyncSym = bestPhase / numFilters
	r.symsyncBank = bestPhase % numFilters

	if bestEnergy <= 0 {
		return false
	}
	meanEnergy := bestEnergy / float64(preambleLength)
	r.symbolScale = 1 / math.Sqrt(meanEnergy)

	half := preambleLength / 2
	var rot0, rot1 complex128
	for sym := 0; sym < half; sym++ {
		z := grid[sym][bestPhase]
		rot0 += z * z
	}
	for sym := half; sym < preambleLength; sym++ {
		z := grid[sym][bestPhase]
		rot1 += z * z
	}

	r.phase = cmplx.Phase(rot0+rot1) / 2
	r.frequency = cmplx.Phase(rot1*cmplx.Conj(rot0)) / float64(preambleLength-filterDelay)
	r.rebuildCorrection()

	if 1/r.symbolScale > strongSignalThreshold {
		for sym := filterDelay; sym < preambleLength; sym++ {
			z := grid[sym][bestPhase] * r.correction
			r.eq.Push(z)
			out := r.eq.Execute()
			r.eq.Step(out, decisionOf(out))
		}
	}

	for sym := 0; sym < preambleLength; sym++ {
		z := grid[sym][bestPhase]
		r.demodulateOne(z, fr)
	}

	return true
}

// ReadSymbol consumes exactly samplesPerSymbol raw samples and, if any,
// appends one soft bit produced from the trained sampling phase to fr.
func (r *Reader) ReadSymbol(fr *frame.Frame, window []complex64) bool {
	if len(window) != samplesPerSymbol {
		return false
	}

	produced := false
	for s := 0; s < samplesPerSymbol; s++ {
		raw := complex128(window[s])
		r.bank.Push(raw)
		if s == r.symsyncSym {
			z := r.bank.Execute(r.symsyncBank)
			r.demodulateOne(z, fr)
			produced = true
		}
	}
	return produced
}

// IsFrameComplete reports whether fr has accumulated enough soft bits to
// cover preamble, payload and filter delay.
func (r *Reader) IsFrameComplete(fr *frame.Frame) bool {
	return fr.Complete()
}

// demodulateOne applies the current correction, advances the Costas loop
// from the corrected symbol, equalises, soft-demodulates, and appends the
// result (and its EVM contribution) to fr.
func (r *Reader) demodulateOne(raw complex128, fr *frame.Frame) {
	z := raw * r.correction
	r.costasUpdate(z)

	r.eq.Push(z)
	eqOut := r.eq.Execute()
	r.eq.Step(eqOut, decisionOf(eqOut))

	_, soft := r.demod.DemodulateSoft(eqOut)
	fr.SoftBits = append(fr.SoftBits, soft)
	fr.Symbols = append(fr.Symbols, complex64(eqOut))
	fr.EVMSum = r.demod.EVM()
}

// costasUpdate implements the fixed-gain Costas tracking loop: the error
// term comes from squaring away the BPSK 180 degree ambiguity.
func (r *Reader) costasUpdate(z complex128) {
	err := cmplx.Phase(z*z) / 2
	r.frequency += costasAlpha * err
	r.phase += r.frequency + costasBeta*err
	r.rebuildCorrection()
}

func (r *Reader) rebuildCorrection() {
	r.correction = complex(r.symbolScale, 0) * cmplx.Exp(complex(0, -r.phase))
}

func decisionOf(z complex128) complex128 {
	if real(z) >= 0 {
		return complex(1, 0)
	}
	return complex(-1, 0)
}
