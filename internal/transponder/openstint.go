package transponder

import "github.com/racetiming/raceloop/internal/frame"

const (
	// openStintIDThreshold is the upper bound below which a decoded
	// payload is treated as a transponder id rather than noise.
	openStintIDThreshold = 10000000

	// timeSyncMask and timeSyncLocalMask implement the status-message
	// detection described in §4.3.2/§9: a single mask both flags the
	// anchor message and carries its local timestamp once cleared.
	timeSyncMask      = 0x00A00000
	timeSyncLocalMask = 0x000FFFFF
)

// OpenStintResult is a successfully decoded OpenStint payload.
type OpenStintResult struct {
	// ID is the transponder id when IsTimeSync is false.
	ID int
	// IsTimeSync marks this payload as a time-sync anchor rather than a
	// transponder id; LocalTimestamp then carries the transponder's
	// 20-bit local clock value.
	IsTimeSync     bool
	LocalTimestamp int
}

// DecodeOpenStint resolves the preamble, corrects soft-bit polarity if
// needed, runs the K=9 Viterbi decoder over the next 40 information bits
// (32 data + 8 flush), validates the CRC-8 trailer, and classifies the
// result as a transponder id or a time-sync anchor.
func DecodeOpenStint(soft []uint8) (OpenStintResult, bool) {
	word := frame.TransponderProps(frame.OpenStint).Preamble
	offset, inverted, ok := ResolvePreamble(soft, word)
	if !ok {
		return OpenStintResult{}, false
	}
	if inverted {
		soft = InvertSoft(soft)
	}

	const numInfoBits = 40 // 32 data bits + 8 flush bits
	payload := soft[offset:]
	if len(payload) < 2*numInfoBits {
		return OpenStintResult{}, false
	}

	decoded := NewViterbi29().Decode(payload[:2*numInfoBits], numInfoBits)
	if len(decoded) < 4 {
		return OpenStintResult{}, false
	}

	if !Crc8Validate(decoded[0:3], decoded[3]) {
		return OpenStintResult{}, false
	}

	id := int(decoded[0])<<16 | int(decoded[1])<<8 | int(decoded[2])

	// Time-sync anchors are flagged by a reserved high bit pattern that
	// sits above openStintIDThreshold by design, so that check must be
	// classified before the numeric id range is enforced.
	if id&timeSyncMask == timeSyncMask {
		return OpenStintResult{IsTimeSync: true, LocalTimestamp: id & timeSyncLocalMask}, true
	}

	if id >= openStintIDThreshold {
		return OpenStintResult{}, false
	}
	return OpenStintResult{ID: id}, true
}
