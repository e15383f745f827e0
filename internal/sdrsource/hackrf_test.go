package sdrsource

import (
	"context"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/racetiming/raceloop/internal/timebase"
)

func TestHackRFIDFallsBackToGenericName(t *testing.T) {
	h := NewHackRF("", 433920000, 2000000, false, 1024, nil)
	if got := h.ID(); got != "hackrf" {
		t.Fatalf("ID() = %q, want %q", got, "hackrf")
	}
}

func TestHackRFIDUsesSerialWhenSet(t *testing.T) {
	h := NewHackRF("0000000000000000457863c8204f6a2f", 433920000, 2000000, false, 1024, nil)
	if got := h.ID(); got != "0000000000000000457863c8204f6a2f" {
		t.Fatalf("ID() = %q, want the serial", got)
	}
}

func TestHackRFArgsMinimal(t *testing.T) {
	h := NewHackRF("", 433920000, 2000000, false, 1024, nil)
	want := []string{"-r", "-", "-f", "433920000", "-s", "2000000"}
	if got := h.args(); !reflect.DeepEqual(got, want) {
		t.Fatalf("args() = %v, want %v", got, want)
	}
}

func TestHackRFArgsWithSerialAndBiasTee(t *testing.T) {
	h := NewHackRF("abc123", 915000000, 8000000, true, 1024, nil)
	want := []string{"-r", "-", "-f", "915000000", "-s", "8000000", "-d", "abc123", "-t", "1"}
	if got := h.args(); !reflect.DeepEqual(got, want) {
		t.Fatalf("args() = %v, want %v", got, want)
	}
}

func TestHackRFStopWithoutStartIsNoop(t *testing.T) {
	h := NewHackRF("", 433920000, 2000000, false, 1024, nil)
	if err := h.Stop(); err != nil {
		t.Fatalf("Stop() on an unstarted device returned %v, want nil", err)
	}
}

func TestHackRFReadLoopDecodesSignedInterleavedBytes(t *testing.T) {
	h := NewHackRF("", 433920000, 2000000, false, 2, timebase.New())

	r, w := io.Pipe()
	out := make(chan Buffer)
	errc := make(chan error, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.readLoop(ctx, r, out, errc)

	// int8(-1) == 0xFF, int8(127) == 0x7F; two IQ pairs.
	go w.Write([]byte{0xFF, 0x7F, 0x00, 0x02})

	select {
	case buf := <-out:
		want := []complex64{complex(-1, 127), complex(0, 2)}
		if !reflect.DeepEqual(buf.Samples, want) {
			t.Fatalf("decoded samples = %v, want %v", buf.Samples, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a decoded buffer")
	}
}
