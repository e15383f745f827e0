/*
Raceloop is a software-defined-radio receiver for race-transponder timing
systems. It decodes both OpenStint and legacy (RC3-compatible) BPSK bursts
from a HackRF or an rtl_tcp server and publishes passing and time-sync
events as plain-text lines over TCP.

Command-line Flags:

	-sdr="hackrf"

Selects the sample source backend, "hackrf" or "rtlsdr". Defaults to hackrf.

	-d=""

Device serial (hackrf) or rtl_tcp address host:port (rtlsdr). Defaults to
whichever HackRF is plugged in, or 127.0.0.1:1234 for rtlsdr.

	-freq=5000000

Center frequency in Hz.

	-samplerate=5000000

Sample rate in Hz. Must equal SymbolRate*SamplesPerSymbol for the
polyphase filterbank's grid to line up with the incoming stream.

	-p=5556

TCP port the S/P/T status lines are published on.

	-csv=""

When set, also append every status line to this file as CSV.

	-m=false

Monitor mode: additionally log an F line for every completed frame,
decoded or not. Every S/P/T line is always logged and published,
regardless of this flag.

	-t=false

Use the system wall clock instead of the default monotonic timebase.

	-b=false

Enable HackRF bias-tee power for an externally powered antenna.

	-debug=false

Enable verbose (debug-level) logging.

Every flag above may also be set via a RACELOOP_<FLAG> environment
variable (e.g. RACELOOP_FREQ), applied to any flag not given explicitly
on the command line.

Status lines published on the TCP port are one of:

	S <ts> <noiseFloorDB> <dcOffset> <framesReceived> <framesProcessed>
	P <ts> <kind> <id> <peakRSSI> <hits> <durationMs>
	T <ts> <kind> <id> <transponderTime>

where <kind> is OPN for an OpenStint transponder or AMB for a legacy one.
*/
package main
