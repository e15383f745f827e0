package symbolreader

import "math/cmplx"

// LmsEqualizer is the external DSP primitive contract for the
// decision-directed equaliser: push an input symbol, execute to get its
// filtered output, then step the adaptation with the desired/decided pair.
type LmsEqualizer interface {
	Push(z complex128)
	Execute() complex128
	Step(dPrime, dHat complex128)
	Reset()
}

// lms3 is a 3-tap decision-directed LMS equaliser at the fixed 1/64
// adaptation bandwidth required by §6.
type lms3 struct {
	taps  [3]complex128
	delay [3]complex128
	mu    float64
}

// NewLMS3 returns a 3-tap LMS equaliser with the tap on the newest sample
// initialised to unity (identity pass-through) and the others at zero.
func NewLMS3() *lms3 {
	e := &lms3{mu: 1.0 / 64}
	e.taps[2] = complex(1, 0)
	return e
}

// Push shifts z into the delay line; the newest sample sits in delay[2].
func (e *lms3) Push(z complex128) {
	e.delay[0], e.delay[1], e.delay[2] = e.delay[1], e.delay[2], z
}

func (e *lms3) Execute() complex128 {
	var acc complex128
	for i, tap := range e.taps {
		acc += tap * e.delay[i]
	}
	return acc
}

// Step adapts the taps toward minimising the error between the decided
// symbol dHat and the equaliser's current output dPrime.
func (e *lms3) Step(dPrime, dHat complex128) {
	err := dHat - dPrime
	for i := range e.taps {
		e.taps[i] += complex(e.mu, 0) * cmplx.Conj(e.delay[i]) * err
	}
}

func (e *lms3) Reset() {
	e.delay = [3]complex128{}
	e.taps = [3]complex128{}
	e.taps[2] = complex(1, 0)
}
