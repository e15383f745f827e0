package sdrsource

import (
	"context"
	"net"

	"github.com/bemasher/rtltcp"
	"github.com/pkg/errors"
	"github.com/racetiming/raceloop/internal/timebase"
)

// RTLSDR streams from an rtl_tcp server via github.com/bemasher/rtltcp,
// which is exactly an io.Reader of interleaved unsigned-8-bit I/Q once
// connected; DC sits at 128 so each byte is shifted down by 128 to yield
// the signed int8 pairs the core expects.
type RTLSDR struct {
	sdr     rtltcp.SDR
	addr    string
	bufSize int
	tb      *timebase.Timebase

	conn   net.Conn
	cancel context.CancelFunc
}

// NewRTLSDR returns an unconnected RTL-SDR backend targeting an rtl_tcp
// server at addr (host:port), delivering bufSize-sample buffers.
func NewRTLSDR(addr string, bufSize int, tb *timebase.Timebase) *RTLSDR {
	return &RTLSDR{addr: addr, bufSize: bufSize, tb: tb}
}

func (r *RTLSDR) ID() string {
	return r.addr
}

// Start dials the rtl_tcp server and begins streaming decoded samples.
func (r *RTLSDR) Start(ctx context.Context) (<-chan Buffer, <-chan error, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", r.addr)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "resolve %s", r.addr)
	}
	if err := r.sdr.Connect(tcpAddr); err != nil {
		return nil, nil, errors.Wrap(err, "connect to rtl_tcp")
	}

	ctx, r.cancel = context.WithCancel(ctx)

	out := make(chan Buffer)
	errc := make(chan error, 1)

	go r.readLoop(ctx, out, errc)

	return out, errc, nil
}

func (r *RTLSDR) readLoop(ctx context.Context, out chan<- Buffer, errc chan<- error) {
	defer close(out)
	defer close(errc)

	raw := make([]byte, r.bufSize*2)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		startedAt := r.tb.Now()
		if _, err := readFull(r.sdr.TCPConn, raw); err != nil {
			errc <- errors.Wrap(err, "read from rtl_tcp")
			return
		}

		samples := make([]complex64, r.bufSize)
		for i := 0; i < r.bufSize; i++ {
			iSample := int8(int(raw[2*i]) - 128)
			qSample := int8(int(raw[2*i+1]) - 128)
			samples[i] = complex(float32(iSample), float32(qSample))
		}

		select {
		case out <- Buffer{Samples: samples, StartedAt: startedAt}:
		case <-ctx.Done():
			return
		}
	}
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Stop closes the underlying TCP connection and cancels the read loop.
func (r *RTLSDR) Stop() error {
	if r.cancel != nil {
		r.cancel()
	}
	if r.sdr.TCPConn != nil {
		return r.sdr.TCPConn.Close()
	}
	return nil
}
