package session

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/plotdeck/plotdeck/internal/gnuplot"
)

// Proc is the slice of the process layer a session needs. *gnuplot.Process
// satisfies it; tests substitute a fake that records writes and replies with
// canned capture output.
type Proc interface {
	Write(text string) error
	SendCapture(lines ...string) ([]string, error)
	IsRunning() bool
	Close() (int, error)
}

// Session is one external gnuplot process plus its accumulated script.
// Sessions are not safe for concurrent use; the Registry serializes access.
type Session struct {
	ID      int
	proc    Proc
	log     *Log
	startup []string
}

func newSession(id int, proc Proc, startup []string) *Session {
	return &Session{ID: id, proc: proc, log: newLog(), startup: startup}
}

func (s *Session) sendLine(text string) error {
	return s.proc.Write(text + "\n")
}

// AddCommand records text at the session's current multiplot index.
func (s *Session) AddCommand(text string) error {
	return s.AddCommandAt(text, s.log.mpIndex)
}

// AddCommandAt records text at an explicit multiplot index. Index-0 commands
// take effect right away and are sent immediately; commands at higher indices
// are deferred until dump time.
func (s *Session) AddCommandAt(text string, mpIndex int) error {
	if mpIndex == 0 {
		if err := s.sendLine(text); err != nil {
			return err
		}
	}
	s.log.commands = append(s.log.commands, entry{text, mpIndex})
	return nil
}

// AddData sends a named inline data block to the process and records it.
// All columns must have equal length. An empty name generates a unique one.
// Returns the block name (with its $ prefix) for use in plot expressions.
func (s *Session) AddData(name string, cols ...[]float64) (string, error) {
	if len(cols) == 0 {
		return "", fmt.Errorf("data block needs at least one column: %w", gnuplot.ErrShapeMismatch)
	}
	rows := len(cols[0])
	for i, c := range cols[1:] {
		if len(c) != rows {
			return "", fmt.Errorf("column %d has %d values, column 0 has %d: %w",
				i+1, len(c), rows, gnuplot.ErrShapeMismatch)
		}
	}

	if name == "" {
		name = s.log.nextBlockName()
	} else if !strings.HasPrefix(name, "$") {
		name = "$" + name
	}

	lines := make([]string, 0, rows+2)
	lines = append(lines, name+" << EOD")
	for i := 0; i < rows; i++ {
		vals := make([]string, len(cols))
		for j, c := range cols {
			vals[j] = strconv.FormatFloat(c[i], 'g', -1, 64)
		}
		lines = append(lines, strings.Join(vals, " "))
	}
	lines = append(lines, "EOD")

	for _, line := range lines {
		if err := s.sendLine(line); err != nil {
			return "", err
		}
	}
	s.log.dataLines = append(s.log.dataLines, lines...)
	s.log.lastBlock = name
	return name, nil
}

// AddPlot appends a plot fragment whose source is spelled out in expr.
func (s *Session) AddPlot(expr string) {
	s.AddPlotAt(expr, s.log.mpIndex)
}

// AddPlotAt appends a plot fragment at an explicit multiplot index.
func (s *Session) AddPlotAt(expr string, mpIndex int) {
	s.log.plots = append(s.log.plots, entry{expr, mpIndex})
}

// AddPlotData appends a plot fragment sourcing the most recent data block.
func (s *Session) AddPlotData(expr string) error {
	if s.log.lastBlock == "" {
		return fmt.Errorf("no data block to plot: %w", gnuplot.ErrState)
	}
	s.AddPlot(strings.TrimSpace(s.log.lastBlock + " " + expr))
	return nil
}

// AddPlotFile appends a plot fragment sourcing a file on disk.
func (s *Session) AddPlotFile(path, expr string) {
	s.AddPlot(strings.TrimSpace("'" + path + "' " + expr))
}

// SetSplot switches the session's combined plot statement between 2D plot
// and 3D splot rendering.
func (s *Session) SetSplot(on bool) {
	s.log.splot = on
}

// AdvanceMultiplot moves the session to the next multiplot panel.
func (s *Session) AdvanceMultiplot() {
	s.log.mpIndex++
}

// StartMultiplot begins a multiplot figure. Only valid when no multiplot is
// active. The begin command is tagged at index 0 and sent immediately;
// options are passed through verbatim.
func (s *Session) StartMultiplot(options string) error {
	if s.log.mpIndex != 0 {
		return fmt.Errorf("multiplot already active at index %d: %w", s.log.mpIndex, gnuplot.ErrState)
	}
	cmd := "set multiplot"
	if options != "" {
		cmd += " " + options
	}
	if err := s.sendLine(cmd); err != nil {
		return err
	}
	s.log.commands = append(s.log.commands, entry{cmd, 0})
	s.log.mpIndex = 1
	return nil
}

// Reset sends a session reset to the process, awaits its reply, replaces the
// log with a fresh one and re-applies the startup script.
func (s *Session) Reset() error {
	if _, err := s.proc.SendCapture("reset session"); err != nil {
		return err
	}
	s.log = newLog()
	for _, line := range s.startup {
		if err := s.AddCommand(line); err != nil {
			return err
		}
	}
	return nil
}

// Exec sends text through the capture protocol and returns the process's
// reply, excluding the sentinel markers.
func (s *Session) Exec(text string) ([]string, error) {
	return s.proc.SendCapture(text)
}

// ExecScript sends a batch of lines in one capture round-trip.
func (s *Session) ExecScript(lines ...string) ([]string, error) {
	return s.proc.SendCapture(lines...)
}

// Script reconstructs the session script without touching the process.
func (s *Session) Script(mode DumpMode) []string {
	return s.log.script(mode)
}

// Dump reconstructs the script and, unless mode.Dry, sends it to the process
// wrapped in a capture round-trip so the caller knows every line was
// consumed. Returns the reconstructed lines.
func (s *Session) Dump(mode DumpMode) ([]string, error) {
	lines := s.log.script(mode)
	if !mode.Dry {
		if _, err := s.proc.SendCapture(lines...); err != nil {
			return nil, err
		}
	}
	return lines, nil
}

// Save writes a full dump to w, one instruction per line, byte-identical to
// what Dump would send. The process is not touched.
func (s *Session) Save(w io.Writer) error {
	lines := s.log.script(DumpMode{Full: true, Dry: true})
	for _, line := range lines {
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return fmt.Errorf("write dump: %v: %w", err, gnuplot.ErrIO)
		}
	}
	return nil
}
