package report

import (
	"bufio"
	"net"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// subscriberQueueDepth bounds how many unsent lines a slow subscriber may
// accumulate before the broadcaster starts dropping its oldest lines,
// keeping a stalled reader from ever blocking the reporter.
const subscriberQueueDepth = 256

// TCPSink is the default publish transport: a plain TCP listener that
// fans every WriteLine call out to all currently connected subscribers.
// No pack example ships a ZeroMQ-equivalent broker, so this boundary is
// a documented stdlib exception (see DESIGN.md).
type TCPSink struct {
	log *logrus.Logger

	mu   sync.Mutex
	subs map[*subscriber]struct{}

	listener net.Listener
}

type subscriber struct {
	queue chan string
	done  chan struct{}
}

// NewTCPSink starts listening on addr (e.g. ":5556") and returns a sink
// that will broadcast every WriteLine call to whoever is connected.
func NewTCPSink(addr string, log *logrus.Logger) (*TCPSink, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen on %s", addr)
	}

	s := &TCPSink{
		log:      log,
		subs:     make(map[*subscriber]struct{}),
		listener: ln,
	}
	go s.acceptLoop()
	return s, nil
}

func (s *TCPSink) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.serve(conn)
	}
}

func (s *TCPSink) serve(conn net.Conn) {
	defer conn.Close()

	sub := &subscriber{
		queue: make(chan string, subscriberQueueDepth),
		done:  make(chan struct{}),
	}

	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.subs, sub)
		s.mu.Unlock()
		close(sub.done)
	}()

	w := bufio.NewWriter(conn)
	for line := range sub.queue {
		if _, err := w.WriteString(line + "\n"); err != nil {
			return
		}
		if err := w.Flush(); err != nil {
			return
		}
	}
}

// WriteLine fans line out to every connected subscriber, dropping the
// oldest queued line for any subscriber whose queue is already full
// rather than ever blocking the caller.
func (s *TCPSink) WriteLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for sub := range s.subs {
		select {
		case sub.queue <- line:
		default:
			select {
			case <-sub.queue:
			default:
			}
			select {
			case sub.queue <- line:
			default:
			}
		}
	}
	return nil
}

// Close stops accepting new subscribers and closes all existing queues.
func (s *TCPSink) Close() error {
	err := s.listener.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		close(sub.queue)
	}
	return err
}
