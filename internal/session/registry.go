package session

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/plotdeck/plotdeck/internal/gnuplot"
	"github.com/plotdeck/plotdeck/internal/logging"
)

var sessLog = logging.ForComponent(logging.CompSession)

// SpawnFunc creates the external process backing a new session.
type SpawnFunc func(commandLine string, sessionID int) (Proc, error)

// Recorder persists lines sent through the scripting facade. The history
// store implements it; a nil Recorder disables recording.
type Recorder interface {
	Record(sessionID int, kind, text string) error
}

// Config is the read-only configuration surface the registry consumes.
type Config struct {
	// Command is the default process command line (default "gnuplot").
	Command string

	// Startup commands are sent through the logged command path whenever a
	// session is created or reset.
	Startup []string

	// Spawn overrides process creation; defaults to gnuplot.Spawn.
	Spawn SpawnFunc

	// Sink receives I/O echo from every process.
	Sink gnuplot.Sink

	// History records facade operations when non-nil.
	History Recorder
}

// Registry owns every live session and the current-session pointer. It is
// the only mutable state shared across operations: one mutex serializes all
// structural and scripting calls, while each process's background readers
// run independently and never touch registry structure.
type Registry struct {
	mu        sync.Mutex
	cfg       Config
	sessions  []*Session
	currentID int // 0 = no current session
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg Config) *Registry {
	if cfg.Command == "" {
		cfg.Command = "gnuplot"
	}
	if cfg.Sink == nil {
		cfg.Sink = gnuplot.NopSink{}
	}
	if cfg.Spawn == nil {
		sink := cfg.Sink
		cfg.Spawn = func(commandLine string, sessionID int) (Proc, error) {
			return gnuplot.Spawn(commandLine, sessionID, sink)
		}
	}
	return &Registry{cfg: cfg}
}

// NewSession spawns a process, creates an empty log, makes the session
// current and sends the configured startup script through the normal command
// path (so it is itself logged). Returns the new session's ID.
func (r *Registry) NewSession(commandLine string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.newSessionLocked(commandLine)
	if err != nil {
		return 0, err
	}
	return s.ID, nil
}

func (r *Registry) newSessionLocked(commandLine string) (*Session, error) {
	if commandLine == "" {
		commandLine = r.cfg.Command
	}
	id := r.nextIDLocked()

	proc, err := r.cfg.Spawn(commandLine, id)
	if err != nil {
		return nil, err
	}

	s := newSession(id, proc, r.cfg.Startup)
	r.sessions = append(r.sessions, s)
	r.currentID = id
	sessLog.Info("session_created", slog.Int("id", id), slog.String("command", commandLine))

	for _, line := range r.cfg.Startup {
		if err := s.AddCommand(line); err != nil {
			return nil, err
		}
		r.record(id, "command", line)
	}
	return s, nil
}

// nextIDLocked allocates max(live IDs)+1, or 1 when none are live.
func (r *Registry) nextIDLocked() int {
	next := 1
	for _, s := range r.sessions {
		if s.ID >= next {
			next = s.ID + 1
		}
	}
	return next
}

func (r *Registry) findLocked(id int) *Session {
	for _, s := range r.sessions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// SetCurrent selects the session all subsequent operations target.
func (r *Registry) SetCurrent(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.findLocked(id)
	if s == nil {
		return fmt.Errorf("session %d: %w", id, gnuplot.ErrNotFound)
	}
	if !s.proc.IsRunning() {
		return fmt.Errorf("session %d: %w", id, gnuplot.ErrNotRunning)
	}
	r.currentID = id
	return nil
}

// CurrentID returns the current session's ID, or 0 when none is current.
func (r *Registry) CurrentID() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentID
}

// SessionIDs returns the live session IDs in creation order.
func (r *Registry) SessionIDs() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int, len(r.sessions))
	for i, s := range r.sessions {
		ids[i] = s.ID
	}
	return ids
}

// Close closes the session with the given ID, blocking until its process has
// exited. If it was current, the session with the largest remaining ID
// becomes current (or none). Returns the process exit code.
func (r *Registry) Close(id int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeLocked(id)
}

func (r *Registry) closeLocked(id int) (int, error) {
	s := r.findLocked(id)
	if s == nil {
		return 0, fmt.Errorf("session %d: %w", id, gnuplot.ErrNotFound)
	}

	code, err := s.proc.Close()

	// Remove the session even if Close reported an error, so the registry
	// never holds a half-dead entry.
	for i, other := range r.sessions {
		if other.ID == id {
			r.sessions = append(r.sessions[:i], r.sessions[i+1:]...)
			break
		}
	}
	if r.currentID == id {
		r.currentID = 0
		for _, other := range r.sessions {
			if other.ID > r.currentID {
				r.currentID = other.ID
			}
		}
	}

	sessLog.Info("session_closed", slog.Int("id", id), slog.Int("exit_code", code))
	return code, err
}

// CloseCurrent closes the current session. When no session is current it is
// a no-op and ok is false.
func (r *Registry) CloseCurrent() (code int, ok bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.currentID == 0 {
		return 0, false, nil
	}
	code, err = r.closeLocked(r.currentID)
	return code, true, err
}

// CloseAll repeatedly closes the current session until none remain.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for len(r.sessions) > 0 {
		id := r.currentID
		if id == 0 {
			// All remaining sessions are non-current (e.g. dead processes);
			// take the largest so teardown still terminates.
			for _, s := range r.sessions {
				if s.ID > id {
					id = s.ID
				}
			}
		}
		if _, err := r.closeLocked(id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ensureCurrentLocked resolves the current session, creating one with the
// default command when none exists. This is the single liveness gate for
// every scripting operation: a dead current process fails with ErrNotRunning
// and is never silently respawned.
func (r *Registry) ensureCurrentLocked() (*Session, error) {
	if r.currentID == 0 {
		return r.newSessionLocked("")
	}
	s := r.findLocked(r.currentID)
	if s == nil {
		return nil, fmt.Errorf("session %d: %w", r.currentID, gnuplot.ErrNotFound)
	}
	if !s.proc.IsRunning() {
		return nil, fmt.Errorf("session %d: %w", s.ID, gnuplot.ErrNotRunning)
	}
	return s, nil
}

func (r *Registry) record(sessionID int, kind, text string) {
	if r.cfg.History == nil {
		return
	}
	if err := r.cfg.History.Record(sessionID, kind, text); err != nil {
		sessLog.Warn("history_record_failed",
			slog.Int("session", sessionID), slog.String("error", err.Error()))
	}
}

// --- Scripting facade ---
//
// Every operation below resolves the current session under the registry lock
// and delegates to it.

// Exec sends text through the capture protocol and returns the reply lines.
func (r *Registry) Exec(text string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.ensureCurrentLocked()
	if err != nil {
		return nil, err
	}
	out, err := s.Exec(text)
	if err != nil {
		return nil, err
	}
	r.record(s.ID, "exec", text)
	return out, nil
}

// ExecScript sends a batch of lines in one capture round-trip.
func (r *Registry) ExecScript(lines ...string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.ensureCurrentLocked()
	if err != nil {
		return nil, err
	}
	out, err := s.ExecScript(lines...)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		r.record(s.ID, "exec", line)
	}
	return out, nil
}

// Command records a command at the current multiplot index.
func (r *Registry) Command(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.ensureCurrentLocked()
	if err != nil {
		return err
	}
	if err := s.AddCommand(text); err != nil {
		return err
	}
	r.record(s.ID, "command", text)
	return nil
}

// Apply records every command an options bundle expands to.
func (r *Registry) Apply(opts PlotOptions) error {
	for _, cmd := range opts.Commands() {
		if err := r.Command(cmd); err != nil {
			return err
		}
	}
	return nil
}

// Data sends an inline data block and returns its (possibly generated) name.
func (r *Registry) Data(name string, cols ...[]float64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.ensureCurrentLocked()
	if err != nil {
		return "", err
	}
	block, err := s.AddData(name, cols...)
	if err != nil {
		return "", err
	}
	r.record(s.ID, "data", block)
	return block, nil
}

// Plot appends a plot fragment with an explicit source expression.
func (r *Registry) Plot(expr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.ensureCurrentLocked()
	if err != nil {
		return err
	}
	s.AddPlot(expr)
	r.record(s.ID, "plot", expr)
	return nil
}

// PlotData appends a plot fragment sourcing the most recent data block.
func (r *Registry) PlotData(expr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.ensureCurrentLocked()
	if err != nil {
		return err
	}
	if err := s.AddPlotData(expr); err != nil {
		return err
	}
	r.record(s.ID, "plot", expr)
	return nil
}

// PlotFile appends a plot fragment sourcing a file on disk.
func (r *Registry) PlotFile(path, expr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.ensureCurrentLocked()
	if err != nil {
		return err
	}
	s.AddPlotFile(path, expr)
	r.record(s.ID, "plot", "'"+path+"' "+expr)
	return nil
}

// SetSplot toggles 3D rendering for the current session's plot statements.
func (r *Registry) SetSplot(on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.ensureCurrentLocked()
	if err != nil {
		return err
	}
	s.SetSplot(on)
	return nil
}

// StartMultiplot begins a multiplot figure on the current session.
func (r *Registry) StartMultiplot(options string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.ensureCurrentLocked()
	if err != nil {
		return err
	}
	if err := s.StartMultiplot(options); err != nil {
		return err
	}
	r.record(s.ID, "command", strings.TrimSpace("set multiplot "+options))
	return nil
}

// NextPlot advances the current session to the next multiplot panel.
func (r *Registry) NextPlot() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.ensureCurrentLocked()
	if err != nil {
		return err
	}
	s.AdvanceMultiplot()
	return nil
}

// Reset clears the current session's state and re-applies the startup script.
func (r *Registry) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.ensureCurrentLocked()
	if err != nil {
		return err
	}
	if err := s.Reset(); err != nil {
		return err
	}
	r.record(s.ID, "reset", "reset session")
	return nil
}

// Dump reconstructs the current session's script, optionally sending it.
func (r *Registry) Dump(mode DumpMode) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.ensureCurrentLocked()
	if err != nil {
		return nil, err
	}
	return s.Dump(mode)
}

// Save writes a full dry dump of the current session to w.
func (r *Registry) Save(w io.Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.ensureCurrentLocked()
	if err != nil {
		return err
	}
	return s.Save(w)
}
