package symbolreader

import (
	"testing"

	"github.com/racetiming/raceloop/internal/frame"
)

func TestReadPreambleRejectsWrongLookbackLength(t *testing.T) {
	r := New()
	fr := frame.New(frame.OpenStint, 0)
	if r.ReadPreamble(fr, make([]complex64, ReserveLength-1)) {
		t.Fatalf("ReadPreamble accepted a lookback shorter than ReserveLength")
	}
}

func TestReadSymbolRejectsWrongWindowLength(t *testing.T) {
	r := New()
	fr := frame.New(frame.OpenStint, 0)
	if r.ReadSymbol(fr, make([]complex64, samplesPerSymbol-1)) {
		t.Fatalf("ReadSymbol accepted a window shorter than samplesPerSymbol")
	}
}

func TestReadPreambleRejectsSilence(t *testing.T) {
	r := New()
	fr := frame.New(frame.OpenStint, 0)
	if r.ReadPreamble(fr, make([]complex64, ReserveLength)) {
		t.Fatalf("ReadPreamble accepted an all-zero lookback (zero energy at every phase)")
	}
}
