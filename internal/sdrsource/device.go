// Package sdrsource adapts the two supported SDR backends (HackRF,
// RTL-SDR) to a single tagged interface, collapsing the deep-inheritance
// shape the spec explicitly calls out against into one capability set,
// grounded on roman-kulish-drone-radio-surveillance's Device/Handler
// pattern (adapted here from parsed power-sweep text lines to raw binary
// IQ samples).
package sdrsource

import "context"

// Buffer is one delivered chunk of baseband samples plus the timebase
// reading at its first sample.
type Buffer struct {
	Samples   []complex64
	StartedAt uint64
}

// Device is the tagged capability set every SDR backend implements:
// Start begins streaming into the returned channel (closed on Stop or on
// an unrecoverable backend error), Stop releases the backend's resources.
type Device interface {
	Start(ctx context.Context) (<-chan Buffer, <-chan error, error)
	Stop() error
	ID() string
}
