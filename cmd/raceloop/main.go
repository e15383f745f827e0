package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/racetiming/raceloop/internal/frame"
	"github.com/racetiming/raceloop/internal/framedetector"
	"github.com/racetiming/raceloop/internal/receiver"
	"github.com/racetiming/raceloop/internal/report"
	"github.com/racetiming/raceloop/internal/sdrsource"
	"github.com/racetiming/raceloop/internal/timebase"
	"github.com/sirupsen/logrus"
)

var (
	port        = flag.Int("p", 5556, "publish TCP port")
	monitor     = flag.Bool("m", false, "monitor mode: also log F <frame> per frame")
	systemClock = flag.Bool("t", false, "use system clock as timebase")
	csvPath     = flag.String("csv", "", "also append S/P/T lines to this CSV file")

	sdrKind    = flag.String("sdr", "hackrf", "sdr backend: hackrf or rtlsdr")
	device     = flag.String("d", "", "device serial (hackrf) or rtl_tcp address (rtlsdr, host:port)")
	gainDB     = flag.Float64("g", 0, "receive gain in dB (accepted, but not passed to either backend)")
	freqHz     = flag.Uint64("freq", 5000000, "center frequency in Hz")
	sampleRate = flag.Uint64("samplerate", frame.SampleRate, "sample rate in Hz")
	biasTee    = flag.Bool("b", false, "enable HackRF bias-tee power")
	debug      = flag.Bool("debug", false, "enable verbose logging")
)

const envPrefix = "RACELOOP_"

// envOverride applies RACELOOP_<FLAG> environment variables over any
// flag not already set explicitly on the command line, mirroring the
// teacher's EnvOverride (renamed from its RTLAMR_ prefix).
func envOverride() {
	explicit := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		explicit[f.Name] = true
	})
	flag.VisitAll(func(f *flag.Flag) {
		if explicit[f.Name] {
			return
		}
		name := envPrefix + strings.ToUpper(f.Name)
		if v, ok := os.LookupEnv(name); ok {
			_ = f.Value.Set(v)
		}
	})
}

func newDevice(log *logrus.Logger, tb *timebase.Timebase) (sdrsource.Device, error) {
	const bufSize = 1 << 14

	switch *sdrKind {
	case "hackrf":
		return sdrsource.NewHackRF(*device, *freqHz, *sampleRate, *biasTee, bufSize, tb), nil
	case "rtlsdr":
		addr := *device
		if addr == "" {
			addr = "127.0.0.1:1234"
		}
		return sdrsource.NewRTLSDR(addr, bufSize, tb), nil
	default:
		return nil, fmt.Errorf("unknown sdr backend %q", *sdrKind)
	}
}

// newLogger returns a logrus.Logger writing to standard output, matching
// §4.6's requirement that S/P/T lines reach stdout regardless of the
// publish sink's state. logrus.New defaults Out to os.Stderr, so this
// override is not optional.
func newLogger(debug bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.TextFormatter{})
	if debug {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

func main() {
	flag.Parse()
	envOverride()

	log := newLogger(*debug)

	tb := timebase.New()
	if *systemClock {
		tb.UseSystemClock()
	}

	thresholds := framedetector.Default()
	if *sdrKind == "hackrf" {
		thresholds = framedetector.HackRF()
	}
	rctx := receiver.New(thresholds, tb)
	if *monitor {
		rctx.OnFrame = func(fr *frame.Frame, decoded bool) {
			log.Infof("F %s", fr)
			_ = decoded
		}
	}

	tcpSink, err := report.NewTCPSink(":"+strconv.Itoa(*port), log)
	if err != nil {
		log.WithError(err).Fatal("failed to start publish sink")
	}
	defer tcpSink.Close()

	var sink report.Sink = tcpSink
	if *csvPath != "" {
		f, err := os.OpenFile(*csvPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.WithError(err).Fatal("failed to open csv output")
		}
		csvSink := report.NewCSVSink(f)
		defer csvSink.Close()
		sink = report.NewMultiSink(tcpSink, csvSink)
	}

	dev, err := newDevice(log, tb)
	if err != nil {
		log.WithError(err).Fatal("failed to configure sdr device")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	buffers, devErrs, err := dev.Start(ctx)
	if err != nil {
		log.WithError(err).Fatal("failed to start sdr device")
	}

	reporter := report.New(rctx.Agg, rctx.Stats, sink, log)

	done := make(chan struct{})
	go runProducer(buffers, rctx, done)

	ticker := time.NewTicker(report.PollIntervalMs * time.Millisecond)
	defer ticker.Stop()

runLoop:
	for {
		select {
		case <-ctx.Done():
			break runLoop
		case err := <-devErrs:
			if err != nil {
				log.WithError(err).Error("sdr device error")
			}
			break runLoop
		case <-ticker.C:
			reporter.Tick(tb.Now())
		case <-done:
			break runLoop
		}
	}

	if err := dev.Stop(); err != nil {
		log.WithError(err).Warn("error stopping sdr device")
	}
	<-done
}

func runProducer(buffers <-chan sdrsource.Buffer, rctx *receiver.Context, done chan<- struct{}) {
	defer close(done)
	for buf := range buffers {
		rctx.ProcessBuffer(buf.Samples, buf.StartedAt)
	}
}
