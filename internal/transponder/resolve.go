package transponder

import "math/bits"

const maxHammingDistance = 2

// ResolvePreamble implements the shared preamble-resolution rule of
// §4.3.1: scan the 17 possible bit offsets of the first 32 soft bits for
// a near match (Hamming distance ≤ 2) to word, trying the bit-inverted
// soft sequence if the direct scan fails. It returns the soft-bit offset
// of the first payload bit, whether the match required inversion, and
// whether any match was found at all.
func ResolvePreamble(soft []uint8, word uint16) (offset int, inverted bool, ok bool) {
	if len(soft) < 32 {
		return 0, false, false
	}

	sof := packWord(soft[:32])
	if k, found := scanOffsets(sof, word); found {
		return k + 16, false, true
	}
	if k, found := scanOffsets(^sof, word); found {
		return k + 16, true, true
	}
	return 0, false, false
}

func packWord(soft []uint8) uint32 {
	var w uint32
	for _, s := range soft {
		w <<= 1
		if s >= 128 {
			w |= 1
		}
	}
	return w
}

func scanOffsets(sof uint32, word uint16) (int, bool) {
	for k := 0; k <= 16; k++ {
		candidate := uint16((sof >> uint(16-k)) & 0xFFFF)
		if hamming16(candidate, word) <= maxHammingDistance {
			return k, true
		}
	}
	return 0, false
}

func hamming16(a, b uint16) int {
	return bits.OnesCount16(a ^ b)
}

// InvertSoft complements every soft bit (255-v), resolving the BPSK 180
// degree ambiguity when the preamble only matched in inverted form.
func InvertSoft(soft []uint8) []uint8 {
	out := make([]uint8, len(soft))
	for i, v := range soft {
		out[i] = 255 - v
	}
	return out
}
