package transponder

import (
	"testing"

	"github.com/racetiming/raceloop/internal/frame"
)

func encodeOpenStintPayload(id uint32) []uint8 {
	data := []byte{byte(id >> 16), byte(id >> 8), byte(id)}
	crc := Crc8(data)

	var info []uint8
	for _, b := range data {
		info = append(info, bitsOf(b, 8)...)
	}
	info = append(info, bitsOf(crc, 8)...)
	info = append(info, make([]uint8, 8)...) // flush
	return encodeV29(info)
}

func buildOpenStintFrame(id uint32) []uint8 {
	word := frame.TransponderProps(frame.OpenStint).Preamble
	soft := wordToSoft(word, 16)
	soft = append(soft, encodeOpenStintPayload(id)...)
	return soft
}

func TestDecodeOpenStintTransponderID(t *testing.T) {
	const id = uint32(1234567)
	soft := buildOpenStintFrame(id)

	result, ok := DecodeOpenStint(soft)
	if !ok {
		t.Fatalf("DecodeOpenStint failed on a well-formed frame")
	}
	if result.IsTimeSync {
		t.Fatalf("DecodeOpenStint classified a plain id as a time-sync anchor")
	}
	if result.ID != int(id) {
		t.Fatalf("ID = %d, want %d", result.ID, id)
	}
}

func TestDecodeOpenStintTimeSync(t *testing.T) {
	const localTime = 0x04321
	id := uint32(timeSyncMask) | uint32(localTime)
	soft := buildOpenStintFrame(id)

	result, ok := DecodeOpenStint(soft)
	if !ok {
		t.Fatalf("DecodeOpenStint failed on a well-formed time-sync frame")
	}
	if !result.IsTimeSync {
		t.Fatalf("DecodeOpenStint did not classify a masked id as time-sync")
	}
	if result.LocalTimestamp != localTime {
		t.Fatalf("LocalTimestamp = %#x, want %#x", result.LocalTimestamp, localTime)
	}
}

func TestDecodeOpenStintRejectsBadCRC(t *testing.T) {
	data := []byte{0, 0, 42}
	badCRC := Crc8(data) ^ 0xFF // deliberately wrong trailer

	var info []uint8
	for _, b := range data {
		info = append(info, bitsOf(b, 8)...)
	}
	info = append(info, bitsOf(badCRC, 8)...)
	info = append(info, make([]uint8, 8)...)

	word := frame.TransponderProps(frame.OpenStint).Preamble
	soft := wordToSoft(word, 16)
	soft = append(soft, encodeV29(info)...)

	if _, ok := DecodeOpenStint(soft); ok {
		t.Fatalf("DecodeOpenStint accepted a payload with a deliberately wrong CRC trailer")
	}
}

func TestDecodeOpenStintRejectsNoPreamble(t *testing.T) {
	soft := make([]uint8, 120)
	if _, ok := DecodeOpenStint(soft); ok {
		t.Fatalf("DecodeOpenStint accepted a frame with no preamble match")
	}
}
