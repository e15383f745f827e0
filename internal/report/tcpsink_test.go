package report

import (
	"bufio"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestTCPSinkBroadcastsToSubscriber(t *testing.T) {
	sink, err := NewTCPSink("127.0.0.1:0", discardLogger())
	if err != nil {
		t.Fatalf("NewTCPSink returned %v", err)
	}
	defer sink.Close()

	conn, err := net.Dial("tcp", sink.listener.Addr().String())
	if err != nil {
		t.Fatalf("Dial returned %v", err)
	}
	defer conn.Close()

	// Give acceptLoop/serve time to register the subscriber before the
	// broadcast, since registration happens on a separate goroutine.
	waitForSubscriberCount(t, sink, 1)

	if err := sink.WriteLine("S 1000 -70.00 0.00 1 1"); err != nil {
		t.Fatalf("WriteLine returned %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("ReadString returned %v", err)
	}
	if line != "S 1000 -70.00 0.00 1 1\n" {
		t.Fatalf("subscriber received %q", line)
	}
}

func TestTCPSinkDropsOldestWhenSubscriberQueueFull(t *testing.T) {
	sink, err := NewTCPSink("127.0.0.1:0", discardLogger())
	if err != nil {
		t.Fatalf("NewTCPSink returned %v", err)
	}
	defer sink.Close()

	// Register a subscriber directly, with no serve() goroutine behind it:
	// serve() would keep draining the queue into the socket's kernel
	// buffer even when the peer never reads, so the queue could not fill.
	sub := &subscriber{
		queue: make(chan string, subscriberQueueDepth),
		done:  make(chan struct{}),
	}
	sink.mu.Lock()
	sink.subs[sub] = struct{}{}
	sink.mu.Unlock()

	// Push more lines than the queue holds: WriteLine must not block even
	// though the queue is saturated.
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberQueueDepth+10; i++ {
			sink.WriteLine("line " + strconv.Itoa(i))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("WriteLine blocked with a full subscriber queue")
	}

	if got := len(sub.queue); got != subscriberQueueDepth {
		t.Fatalf("subscriber queue length = %d, want %d", got, subscriberQueueDepth)
	}
	// The 10 oldest lines were dropped, so the queue now starts at line 10.
	if got := <-sub.queue; got != "line 10" {
		t.Fatalf("oldest queued line = %q, want %q", got, "line 10")
	}
}

func TestTCPSinkCloseStopsAccepting(t *testing.T) {
	log := logrus.New()
	sink, err := NewTCPSink("127.0.0.1:0", log)
	if err != nil {
		t.Fatalf("NewTCPSink returned %v", err)
	}

	conn, err := net.Dial("tcp", sink.listener.Addr().String())
	if err != nil {
		t.Fatalf("Dial returned %v", err)
	}
	defer conn.Close()
	waitForSubscriberCount(t, sink, 1)

	if err := sink.Close(); err != nil {
		t.Fatalf("Close returned %v", err)
	}

	if _, err := net.Dial("tcp", sink.listener.Addr().String()); err == nil {
		t.Fatalf("listener still accepting connections after Close")
	}
}

func waitForSubscriberCount(t *testing.T, sink *TCPSink, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		sink.mu.Lock()
		count := len(sink.subs)
		sink.mu.Unlock()
		if count >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d subscriber(s)", n)
}
