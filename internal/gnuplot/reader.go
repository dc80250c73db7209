package gnuplot

import (
	"bufio"
	"io"
	"log/slog"
)

// Capture sentinels. These are sent to gnuplot as ordinary `print` commands;
// when the process echoes them back they bracket the reply a synchronous
// caller is waiting for.
const (
	captureBegin = "GNUPLOT_JL_SAVE_OUTPUT"
	captureEnd   = "GNUPLOT_JL_SAVE_OUTPUT_END"
)

// captureQueueSize bounds the capture queue. A full queue blocks the reader,
// which backpressures an unconsumed capture instead of buffering forever.
const captureQueueSize = 32

// outputReader drains one of a process's output streams for its whole
// lifetime. Lines between the capture sentinels go to the queue; everything
// else goes to the sink. One reader runs per stream, two per process, both
// feeding the same queue so capture works no matter where gnuplot's `print`
// output lands.
type outputReader struct {
	stream    string // "stdout" or "stderr"
	sessionID int
	sink      Sink
	queue     chan<- string
}

// run is the reader goroutine body. It never panics across the goroutine
// boundary: stream failures degrade to a logged closure notice.
func (r *outputReader) run(src io.Reader) {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	capturing := false
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == captureBegin:
			capturing = true
			r.sink.Emit(TierProtocol, r.sessionID, line)
		case line == captureEnd:
			capturing = false
			r.sink.Emit(TierProtocol, r.sessionID, line)
			// The terminator itself goes on the queue so a blocked
			// consumer can unblock.
			r.queue <- line
		case capturing:
			r.sink.Emit(TierCapture, r.sessionID, line)
			r.queue <- line
		case line == "":
			// dropped
		default:
			r.sink.Emit(TierEcho, r.sessionID, line)
		}
	}

	if err := scanner.Err(); err != nil {
		procLog.Debug("stream_read_error",
			slog.Int("session", r.sessionID),
			slog.String("stream", r.stream),
			slog.String("error", err.Error()))
	}
	r.sink.Emit(TierLifecycle, r.sessionID, r.stream+" closed")
}
