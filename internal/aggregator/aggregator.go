// Package aggregator groups soft detections into passings and correlates
// time-sync anchor messages with the single active transponder window
// they belong to.
package aggregator

import (
	"sync"

	"github.com/racetiming/raceloop/internal/frame"
	"gonum.org/v1/gonum/stat"
)

// MaxDetectionsPerKey bounds how many detections a single key keeps
// before the oldest is dropped; guards against a stationary transponder
// growing the map without bound.
const MaxDetectionsPerKey = 4096

// MinHits is the minimum number of detections a closed-out key must have
// accumulated for a Passing to be reported.
const MinHits = 2

// waveformThreshold is the detection count at which PassingAggregator
// switches from weighted-centroid to waveform peak/valley analysis.
const waveformThreshold = 16

// Key identifies one physical transponder's detection stream.
type Key struct {
	Kind frame.Kind
	ID   int
}

// Detection is one successful decode awaiting aggregation into a Passing.
type Detection struct {
	Timestamp uint64
	RSSI      float64
	EVM       float64
}

// TimeSyncMsg is a pending anchor message awaiting correlation with
// exactly one active key.
type TimeSyncMsg struct {
	Timestamp       uint64
	TransponderTime int
}

// Passing is an emitted aggregate derived from one key's closed-out
// detection sequence.
type Passing struct {
	Timestamp uint64
	Key       Key
	PeakRSSI  float64
	Hits      int
	Duration  uint64
}

// TimeSync is an emitted aggregate binding a TimeSyncMsg to the single
// key whose active window it fell inside.
type TimeSync struct {
	Timestamp       uint64
	Key             Key
	TransponderTime int
}

// Aggregator holds one mutex covering both the per-key detection
// sequences and the pending time-sync messages, matching the single-lock
// contract of §4.4.
type Aggregator struct {
	mu         sync.Mutex
	detections map[Key][]Detection
	pending    []TimeSyncMsg
}

// New returns an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{detections: make(map[Key][]Detection)}
}

// Append pushes a new Detection under key, dropping the oldest once the
// key's sequence exceeds MaxDetectionsPerKey.
func (a *Aggregator) Append(key Key, d Detection) {
	a.mu.Lock()
	defer a.mu.Unlock()

	seq := a.detections[key]
	seq = append(seq, d)
	if len(seq) > MaxDetectionsPerKey {
		seq = seq[len(seq)-MaxDetectionsPerKey:]
	}
	a.detections[key] = seq
}

// Timesync queues a TimeSyncMsg for later correlation by IdentifyTimesyncs.
func (a *Aggregator) Timesync(msg TimeSyncMsg) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = append(a.pending, msg)
}

// IdentifyPassings removes and returns a Passing for every key whose
// newest detection timestamp is at most deadline, filtering out any with
// fewer than MinHits detections.
func (a *Aggregator) IdentifyPassings(deadline uint64) []Passing {
	a.mu.Lock()
	defer a.mu.Unlock()

	var passings []Passing
	for key, seq := range a.detections {
		if len(seq) == 0 || seq[len(seq)-1].Timestamp > deadline {
			continue
		}
		delete(a.detections, key)

		if len(seq) < MinHits {
			continue
		}
		passings = append(passings, computePassing(key, seq))
	}
	return passings
}

// IdentifyTimesyncs drains every pending TimeSyncMsg, emitting a TimeSync
// for each that falls, expanded by margin ms on both sides, inside
// exactly one key's active window.
func (a *Aggregator) IdentifyTimesyncs(margin uint64) []TimeSync {
	a.mu.Lock()
	defer a.mu.Unlock()

	pending := a.pending
	a.pending = nil

	var out []TimeSync
	for _, msg := range pending {
		var matchKey Key
		matches := 0
		for key, seq := range a.detections {
			if len(seq) == 0 {
				continue
			}
			front := seq[0].Timestamp
			back := seq[len(seq)-1].Timestamp
			lower := uint64(0)
			if front > margin {
				lower = front - margin
			}
			if lower < msg.Timestamp && msg.Timestamp < back+margin {
				matchKey = key
				matches++
			}
		}
		if matches == 1 {
			out = append(out, TimeSync{
				Timestamp:       msg.Timestamp,
				Key:             matchKey,
				TransponderTime: msg.TransponderTime,
			})
		}
	}
	return out
}

func computePassing(key Key, seq []Detection) Passing {
	peak := seq[0].RSSI
	for _, d := range seq {
		if d.RSSI > peak {
			peak = d.RSSI
		}
	}

	var ts uint64
	var duration uint64
	if len(seq) < waveformThreshold {
		ts, duration = weightedCentroid(seq, peak)
	} else {
		ts, duration = waveformTimestamp(seq, peak)
	}

	return Passing{
		Timestamp: ts,
		Key:       key,
		PeakRSSI:  peak,
		Hits:      len(seq),
		Duration:  duration,
	}
}

// weightedCentroid is the §4.4 step-2 fallback: an RSSI-weighted mean
// timestamp over detections within 6 dB of the peak.
func weightedCentroid(seq []Detection, peak float64) (uint64, uint64) {
	var ts, weights []float64
	for _, d := range seq {
		if d.RSSI >= peak-6 {
			ts = append(ts, float64(d.Timestamp))
			weights = append(weights, d.RSSI)
		}
	}
	if len(ts) == 0 {
		return seq[len(seq)-1].Timestamp, 0
	}
	return uint64(stat.Mean(ts, weights)), 0
}
