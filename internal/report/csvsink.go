package report

import (
	"encoding/csv"
	"io"
	"strings"
	"sync"

	"golang.org/x/xerrors"
)

// Recorder produces the fields of one CSV record. Adapted from the
// source's csv package, whose Encoder took any Recorder rather than a
// fixed struct set; here the only recorder is a parsed status line.
type Recorder interface {
	Record() []string
}

type csvLine []string

func (l csvLine) Record() []string { return l }

// CSVSink writes each status line to w as a CSV record, splitting the
// space-separated S/P/T line on whitespace. It exists alongside TCPSink
// for operators who want a file they can load into a spreadsheet rather
// than a live TCP feed.
type CSVSink struct {
	mu sync.Mutex
	w  *csv.Writer
	c  io.Closer
}

// NewCSVSink returns a sink that writes CSV records to w. If w also
// implements io.Closer, Close closes it.
func NewCSVSink(w io.Writer) *CSVSink {
	sink := &CSVSink{w: csv.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		sink.c = c
	}
	return sink
}

// WriteLine encodes line as a CSV record, recovering and wrapping any
// panic out of the underlying writer the way the source's Encoder.Encode
// did for arbitrary Recorders.
func (s *CSVSink) WriteLine(line string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = xerrors.Errorf("csv sink: %w", e)
			} else {
				err = xerrors.Errorf("csv sink: %v", r)
			}
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := csvLine(strings.Fields(line))
	if err := s.w.Write(rec.Record()); err != nil {
		return xerrors.Errorf("write csv record: %w", err)
	}
	s.w.Flush()
	return s.w.Error()
}

// Close closes the underlying writer if it supports it.
func (s *CSVSink) Close() error {
	if s.c != nil {
		return s.c.Close()
	}
	return nil
}

// MultiSink fans a single WriteLine out to every configured sink,
// continuing past individual failures and returning the first error
// encountered (if any) so the caller can still log it).
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink returns a sink that writes to every one of sinks in order.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) WriteLine(line string) error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.WriteLine(line); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
