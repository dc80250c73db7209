package gnuplot

import (
	"log/slog"

	"github.com/plotdeck/plotdeck/internal/logging"
)

// Tier classifies a line handed to the logging sink.
type Tier int

const (
	// TierLifecycle covers process start, exit and stream closure notices.
	TierLifecycle Tier = 1
	// TierEcho covers ordinary lines written to or read from the process.
	TierEcho Tier = 2
	// TierCapture covers lines read while the capture protocol is active.
	TierCapture Tier = 3
	// TierProtocol covers the capture sentinel markers themselves.
	TierProtocol Tier = 4
)

// Sink receives every line the process layer wants echoed.
// Implementations decide what to keep; the core never filters.
type Sink interface {
	Emit(tier Tier, sessionID int, text string)
}

var ioLog = logging.ForComponent(logging.CompIO)

// LogSink forwards lines at or below its verbosity threshold to the
// structured logger. Threshold 0 silences everything.
type LogSink struct {
	Threshold int
}

// NewLogSink returns a sink that keeps tiers 1..threshold.
func NewLogSink(threshold int) *LogSink {
	return &LogSink{Threshold: threshold}
}

func (s *LogSink) Emit(tier Tier, sessionID int, text string) {
	if int(tier) > s.Threshold {
		return
	}
	attrs := []any{slog.Int("session", sessionID), slog.Int("tier", int(tier))}
	switch tier {
	case TierLifecycle:
		ioLog.Info(text, attrs...)
	default:
		ioLog.Debug(text, attrs...)
	}
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Emit(Tier, int, string) {}
