package transponder

import "testing"

func TestCrc8TableSelfConsistent(t *testing.T) {
	table := newCrc8Table(Crc8Poly)
	if table != crc8Table {
		t.Fatalf("newCrc8Table(Crc8Poly) does not match package table")
	}
}

func TestCrc8ValidateRoundTrip(t *testing.T) {
	data := []byte{0x00, 0x12, 0x34}
	sum := Crc8(data)
	if !Crc8Validate(data, sum) {
		t.Fatalf("Crc8Validate(data, Crc8(data)) = false, want true")
	}
	if Crc8Validate(data, sum^0xFF) {
		t.Fatalf("Crc8Validate(data, wrong) = true, want false")
	}
}

func TestCrc8DetectsSingleByteChange(t *testing.T) {
	a := Crc8([]byte{1, 2, 3})
	b := Crc8([]byte{1, 2, 4})
	if a == b {
		t.Fatalf("Crc8 collided on a single changed byte")
	}
}
