// Package framedetector implements the preamble-matching frame detector:
// DC-offset and noise-variance tracking over quiet buffers, and per-window
// preamble correlation against the two known transponder sync words.
package framedetector

import (
	"github.com/racetiming/raceloop/internal/frame"
	"github.com/racetiming/raceloop/internal/preamble"
)

// SamplesPerSymbol mirrors frame.SamplesPerSymbol; kept local so this
// package's shape reads the way the source's frame.hpp constants do.
const SamplesPerSymbol = frame.SamplesPerSymbol

// statisticsWindow is the accumulator count at which a quiet stretch of
// buffers is committed into the DC offset / noise variance estimate.
const statisticsWindow = 4096

// Thresholds holds the per-kind match thresholds. The source ships three
// numbers (0.9 for HackRF, 0.84 "shared path", 0.64 legacy) without fully
// specifying which backend uses which; Default below picks the shared-path
// value for OpenStint and the dedicated legacy value, with HackRF() as the
// documented higher-threshold variant for that backend's noisier front end.
type Thresholds struct {
	OpenStint float32
	Legacy    float32
}

// Default returns the shared-path thresholds (0.84 / 0.64).
func Default() Thresholds {
	return Thresholds{OpenStint: 0.84, Legacy: 0.64}
}

// HackRF returns the HackRF-specific OpenStint threshold (0.9) alongside
// the unchanged legacy threshold.
func HackRF() Thresholds {
	return Thresholds{OpenStint: 0.9, Legacy: 0.64}
}

// Match is the result of a completed preamble match: which kind matched
// and the sample phase (0..SamplesPerSymbol-1) whose buffer produced it.
type Match struct {
	Kind  frame.Kind
	Phase int
}

// Detector tracks DC offset and noise variance across buffers and detects
// preamble matches within each symbol-period window.
type Detector struct {
	thresholds Thresholds

	openStint *preamble.Word
	legacy    *preamble.Word

	offset   complex128
	variance float64

	s1 complex128
	s2 float64
	n  uint64

	buffers [SamplesPerSymbol]preamble.CircBuff

	detectedThisBuffer bool
}

// New constructs a Detector for the two fixed transponder preambles.
func New(thresholds Thresholds) *Detector {
	return &Detector{
		thresholds: thresholds,
		openStint:  preamble.New(frame.TransponderProps(frame.OpenStint).Preamble),
		legacy:     preamble.New(frame.TransponderProps(frame.Legacy).Preamble),
	}
}

// BeginBuffer resets the per-buffer detection flag; call once before
// feeding the windows of a new sample buffer.
func (d *Detector) BeginBuffer() {
	d.detectedThisBuffer = false
}

// EndBuffer commits or discards the running mean/variance accumulators
// depending on whether a frame was detected anywhere in the buffer just
// processed, per §4.1's statistics-update rule.
func (d *Detector) EndBuffer() {
	if d.detectedThisBuffer {
		d.s1, d.s2 = 0, 0
		d.n = 0
		return
	}
	if d.n > statisticsWindow {
		d.offset = d.s1 / complex(float64(d.n), 0)
		if d.n > 1 {
			d.variance = d.s2 / float64(d.n-1)
		}
		d.s1, d.s2 = 0, 0
		d.n = 0
	}
}

// Process consumes one window of SamplesPerSymbol complex samples,
// pushes each phase's sample into its own circular buffer, then tests
// only the single highest-energy phase against both known sync words.
// Ties between OpenStint and Legacy favour OpenStint, since it is
// tested first and Legacy only displaces it on a strictly higher score.
func (d *Detector) Process(window []complex64) (Match, bool) {
	n := len(window)
	if n > SamplesPerSymbol {
		n = SamplesPerSymbol
	}

	for phase := 0; phase < n; phase++ {
		s := complex128(window[phase]) - d.offset
		i8 := int8(real(s))
		q8 := int8(imag(s))
		mag2 := uint32(real(s)*real(s) + imag(s)*imag(s))

		d.buffers[phase].Push(i8, q8, mag2)

		if phase == 0 {
			d.s1 += s
			d.s2 += real(s)*real(s) + imag(s)*imag(s)
			d.n++
		}
	}

	phase := 0
	var maxEnergy uint32
	for i := range d.buffers {
		if e := d.buffers[i].Energy(); e > maxEnergy {
			maxEnergy = e
			phase = i
		}
	}
	buf := &d.buffers[phase]

	var best Match
	var bestScore float32
	matched := false

	if score := buf.MatchPreamble(d.openStint); score > d.thresholds.OpenStint {
		bestScore = score
		best = Match{Kind: frame.OpenStint, Phase: phase}
		matched = true
	}
	if score := buf.MatchPreamble(d.legacy); score > d.thresholds.Legacy && score > bestScore {
		best = Match{Kind: frame.Legacy, Phase: phase}
		matched = true
	}

	if matched {
		d.detectedThisBuffer = true
	}
	return best, matched
}

// SymbolEnergy returns the highest-energy phase buffer's window energy,
// scaled down as the source does (divided by BitCount) so it is directly
// comparable across buffer depths.
func (d *Detector) SymbolEnergy() float64 {
	var max uint32
	for i := range d.buffers {
		if e := d.buffers[i].Energy(); e > max {
			max = e
		}
	}
	return float64(max) / float64(preamble.BitCount)
}

// NoiseEnergy returns the last committed noise variance estimate.
func (d *Detector) NoiseEnergy() float64 {
	return d.variance
}

// DCOffset returns the last committed DC offset estimate.
func (d *Detector) DCOffset() complex128 {
	return d.offset
}
