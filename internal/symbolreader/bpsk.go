package symbolreader

import "math/cmplx"

// BpskSoftDemod is the external DSP primitive contract for BPSK
// soft-decision demodulation and the per-frame EVM accessor it keeps.
type BpskSoftDemod interface {
	DemodulateSoft(z complex128) (hardBit bool, soft uint8)
	EVM() float64
	Reset()
}

// bpskDemod maps the real component of a corrected, equalised symbol onto
// a soft bit: 0 is confident-0, 255 confident-1, 128 undecided. The
// mapping saturates at ±2.0 of amplitude either side of the decision
// boundary, matching the ±1-normalised symbol scale the reader trains to.
type bpskDemod struct {
	evmSum float64
}

const softScale = 63.75 // maps |re(z)| == 2.0 to full saturation

// NewBpskDemod returns a soft BPSK demodulator with its EVM accumulator
// at zero.
func NewBpskDemod() *bpskDemod {
	return &bpskDemod{}
}

func (d *bpskDemod) DemodulateSoft(z complex128) (bool, uint8) {
	re := real(z)
	hard := re >= 0

	ideal := complex(1, 0)
	if !hard {
		ideal = complex(-1, 0)
	}
	d.evmSum += cmplx.Abs(z - ideal)

	v := 128 + re*softScale
	switch {
	case v < 0:
		v = 0
	case v > 255:
		v = 255
	}
	return hard, uint8(v)
}

func (d *bpskDemod) EVM() float64 {
	return d.evmSum
}

func (d *bpskDemod) Reset() {
	d.evmSum = 0
}
