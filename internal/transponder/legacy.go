package transponder

import (
	"math/bits"

	"github.com/racetiming/raceloop/internal/frame"
)

// legacyParityMask is SHREG & 0xEEC20C, the taps the two RC3 generator
// polynomials (0xEEC20F, 0xEEC20D) share; they differ only in the two
// lowest taps, which is what makes the algebraic correction below work.
const legacyParityMask = 0xEEC20C

// LegacyResult is a successfully decoded Legacy/RC3 payload.
type LegacyResult struct {
	ID int
}

// DecodeLegacy resolves the preamble, then runs the algebraic SHREG
// reconstruction for the K=24 rate-1/2 RC3 code described in §4.3.3: the
// two candidate estimates of SHREG's low bit are cross-checked pair by
// pair, with differential-BPSK decoded inline. The 32-bit descrambled
// trailer must end in an all-zero 8-bit trail for the id to be accepted.
func DecodeLegacy(soft []uint8) (LegacyResult, bool) {
	word := frame.TransponderProps(frame.Legacy).Preamble
	offset, inverted, ok := ResolvePreamble(soft, word)
	if !ok {
		return LegacyResult{}, false
	}
	if inverted {
		soft = InvertSoft(soft)
	}

	payload := soft[offset:]
	if len(payload) < 80 {
		return LegacyResult{}, false
	}

	var shreg uint64
	lastOK := true
	prevSym := 0

	for i := 0; i < 80; i += 2 {
		p := bits.OnesCount64(shreg&legacyParityMask) & 1

		sym := 0
		if payload[i] > 127 {
			sym = 1
		}
		b0 := sym ^ prevSym
		prevSym = 0
		if payload[i+1] > 127 {
			prevSym = 1
		}
		b1 := prevSym ^ sym

		shreg1 := 0
		if shreg&2 != 0 {
			shreg1 = 1
		}
		shreg0p0 := p ^ shreg1 ^ b0
		shreg0p1 := p ^ b1

		if lastOK {
			lastOK = shreg0p0 == shreg0p1
			if lastOK {
				shreg |= uint64(shreg0p0)
			}
		} else {
			shreg1p := b0 ^ b1
			shreg |= uint64(shreg1p<<1 | shreg0p1)
			lastOK = true
		}
		shreg <<= 1
	}

	shreg >>= 1
	trail := uint32(shreg & 0xff)
	message := uint32((shreg >> 8) & 0xffffffff)

	if trail != 0 {
		return LegacyResult{}, false
	}

	var tid uint32
	for i := 0; i < 32; i++ {
		if i%4 != 0 {
			bit := (message >> uint(i)) & 1
			tid = (tid << 1) | bit
		}
	}

	if int(tid) >= openStintIDThreshold {
		return LegacyResult{}, false
	}
	return LegacyResult{ID: int(tid)}, true
}
