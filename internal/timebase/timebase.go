// Package timebase provides the single clock the receiver core uses for
// frame timestamps, passing aggregation and reporting cadence.
package timebase

import (
	"sync/atomic"
	"time"
)

// Timebase produces monotonically increasing millisecond timestamps. By
// default it measures elapsed time since construction; UseSystemClock
// switches it to wall-clock milliseconds (the "-t" flag), at the cost of
// being sensitive to NTP jumps.
type Timebase struct {
	start  time.Time
	system atomic.Bool
}

// New returns a Timebase anchored to the current instant.
func New() *Timebase {
	return &Timebase{start: time.Now()}
}

// UseSystemClock switches Now to report wall-clock milliseconds since the
// Unix epoch instead of elapsed time since construction.
func (tb *Timebase) UseSystemClock() {
	tb.system.Store(true)
}

// Now returns the current timebase reading in milliseconds.
func (tb *Timebase) Now() uint64 {
	if tb.system.Load() {
		return uint64(time.Now().UnixMilli())
	}
	return uint64(time.Since(tb.start).Milliseconds())
}
