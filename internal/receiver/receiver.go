// Package receiver glues the frame detector, symbol reader, transponder
// decoders, aggregator and channel stats into the single per-buffer
// entry point the SDR producer goroutine calls.
package receiver

import (
	"github.com/racetiming/raceloop/internal/aggregator"
	"github.com/racetiming/raceloop/internal/channelstats"
	"github.com/racetiming/raceloop/internal/frame"
	"github.com/racetiming/raceloop/internal/framedetector"
	"github.com/racetiming/raceloop/internal/symbolreader"
	"github.com/racetiming/raceloop/internal/timebase"
	"github.com/racetiming/raceloop/internal/transponder"
)

// Context owns the one-of-each DSP and aggregation state the producer
// goroutine drives. It replaces the source's process-wide singletons
// (FrameDetector, SymbolReader, PassingAggregator, Timebase) with a
// single struct constructed once in main and passed by pointer into the
// producer's closure — never copied.
type Context struct {
	Detector *framedetector.Detector
	Reader   *symbolreader.Reader
	Agg      *aggregator.Aggregator
	Stats    *channelstats.Stats
	TB       *timebase.Timebase

	reserve []complex64
	active  *frame.Frame

	// OnFrame, if set, is called after every completed frame (decoded or
	// not) — the hook behind the "-m" monitor mode's per-frame logging.
	OnFrame func(fr *frame.Frame, decoded bool)
}

// New constructs a Context with fresh DSP state anchored to tb.
func New(thresholds framedetector.Thresholds, tb *timebase.Timebase) *Context {
	return &Context{
		Detector: framedetector.New(thresholds),
		Reader:   symbolreader.New(),
		Agg:      aggregator.New(),
		Stats:    channelstats.New(tb.Now()),
		TB:       tb,
		reserve:  make([]complex64, symbolreader.ReserveLength),
	}
}

// ProcessBuffer is the pure-ish per-buffer DSP tick: it walks samples in
// SamplesPerSymbol windows, feeding the frame detector when no frame is
// active and the symbol reader when one is, decoding and aggregating any
// frame that completes along the way. bufferStartTs is the timebase
// reading at the first sample of this buffer.
func (c *Context) ProcessBuffer(samples []complex64, bufferStartTs uint64) {
	c.Detector.BeginBuffer()

	step := frame.SamplesPerSymbol
	for i := 0; i+step <= len(samples); i += step {
		window := samples[i : i+step]

		if c.active == nil {
			match, matched := c.Detector.Process(window)
			if !matched {
				continue
			}
			ts := bufferStartTs + uint64(1000*i)/frame.SampleRate
			fr := frame.New(match.Kind, ts)

			lookback := c.buildLookback(samples, i+step)
			if c.Reader.ReadPreamble(fr, lookback) {
				c.active = fr
			}
			continue
		}

		c.Reader.ReadSymbol(c.active, window)
		if c.Reader.IsFrameComplete(c.active) {
			c.finishFrame(c.active)
			c.active = nil
		}
	}

	c.Detector.EndBuffer()
	c.Stats.SaveChannelCharacteristics(c.Detector.DCOffset(), c.Detector.NoiseEnergy())
	c.updateReserve(samples)
}

func (c *Context) buildLookback(samples []complex64, upTo int) []complex64 {
	n := symbolreader.ReserveLength
	if upTo >= n {
		return samples[upTo-n : upTo]
	}
	need := n - upTo
	out := make([]complex64, n)
	copy(out, c.reserve[len(c.reserve)-need:])
	copy(out[need:], samples[:upTo])
	return out
}

func (c *Context) updateReserve(samples []complex64) {
	n := symbolreader.ReserveLength
	combined := append(append([]complex64{}, c.reserve...), samples...)
	if len(combined) > n {
		combined = combined[len(combined)-n:]
	}
	c.reserve = combined
}

func (c *Context) finishFrame(fr *frame.Frame) {
	switch fr.Kind {
	case frame.OpenStint:
		result, ok := transponder.DecodeOpenStint(fr.SoftBits)
		c.Stats.RegisterFrame(ok)
		if c.OnFrame != nil {
			c.OnFrame(fr, ok)
		}
		if !ok {
			return
		}
		if result.IsTimeSync {
			c.Agg.Timesync(aggregator.TimeSyncMsg{Timestamp: fr.Timestamp, TransponderTime: result.LocalTimestamp})
			return
		}
		c.Agg.Append(aggregator.Key{Kind: fr.Kind, ID: result.ID}, aggregator.Detection{
			Timestamp: fr.Timestamp,
			RSSI:      fr.RSSI(),
			EVM:       fr.EVMSum,
		})

	case frame.Legacy:
		result, ok := transponder.DecodeLegacy(fr.SoftBits)
		c.Stats.RegisterFrame(ok)
		if c.OnFrame != nil {
			c.OnFrame(fr, ok)
		}
		if !ok {
			return
		}
		c.Agg.Append(aggregator.Key{Kind: fr.Kind, ID: result.ID}, aggregator.Detection{
			Timestamp: fr.Timestamp,
			RSSI:      fr.RSSI(),
			EVM:       fr.EVMSum,
		})
	}
}
