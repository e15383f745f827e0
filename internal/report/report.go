// Package report formats and emits the S/P/T status lines and drives the
// 100 ms reporter loop that drains the aggregator and channel stats.
package report

import (
	"fmt"

	"github.com/racetiming/raceloop/internal/aggregator"
	"github.com/racetiming/raceloop/internal/channelstats"
	"github.com/sirupsen/logrus"
)

// Sink is a one-way text-line publish target. Implementations must not
// block the caller indefinitely; see tcpsink.go for the default.
type Sink interface {
	WriteLine(line string) error
}

// PassingDeadlineMs and TimeSyncMarginMs are the fixed §4.6 polling
// parameters: a key is closed out once its newest detection is at least
// this old, and a time-sync message may bind to a window up to this many
// milliseconds before or after its own timestamp.
const (
	PollIntervalMs    = 100
	PassingDeadlineMs = 250
	TimeSyncMarginMs  = 500
)

// Reporter periodically drains the aggregator and channel stats, writing
// every S/P/T line to both sink and standard output. Per-frame "-m"
// debug output is a separate concern handled by the receiver's OnFrame
// hook in cmd/raceloop, not by Reporter.
type Reporter struct {
	agg   *aggregator.Aggregator
	stats *channelstats.Stats
	sink  Sink
	log   *logrus.Logger

	sinkFailed bool
}

// New returns a Reporter wired to agg, stats and sink.
func New(agg *aggregator.Aggregator, stats *channelstats.Stats, sink Sink, log *logrus.Logger) *Reporter {
	return &Reporter{agg: agg, stats: stats, sink: sink, log: log}
}

// Tick runs one reporting pass at timestamp now: it emits an S line when
// due, and P/T lines for whatever the aggregator yields.
func (r *Reporter) Tick(now uint64) {
	if r.stats.ReportingDue(now) {
		r.emit(fmt.Sprintf("S %d %s", now, r.stats.String()))
		r.stats.Reset(now)
	}

	if now >= PassingDeadlineMs {
		for _, p := range r.agg.IdentifyPassings(now - PassingDeadlineMs) {
			r.emit(fmt.Sprintf("P %d %s %d %.2f %d %d",
				p.Timestamp, p.Key.Kind, p.Key.ID, p.PeakRSSI, p.Hits, p.Duration))
		}
	}

	for _, t := range r.agg.IdentifyTimesyncs(TimeSyncMarginMs) {
		r.emit(fmt.Sprintf("T %d %s %d %d",
			t.Timestamp, t.Key.Kind, t.Key.ID, t.TransponderTime))
	}
}

func (r *Reporter) emit(line string) {
	r.log.Info(line)
	if err := r.sink.WriteLine(line); err != nil {
		if !r.sinkFailed {
			r.log.WithError(err).Warn("sink write failed, continuing best-effort")
			r.sinkFailed = true
		}
		return
	}
	r.sinkFailed = false
}
