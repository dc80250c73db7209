package gnuplot

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/shlex"

	"github.com/plotdeck/plotdeck/internal/logging"
)

var procLog = logging.ForComponent(logging.CompProcess)

// closeGrace is how long Close waits for the process to exit after stdin
// closes before killing it.
const closeGrace = 5 * time.Second

// Process is one external gnuplot instance driven through pipes.
// It owns exclusive write access to stdin and exclusive read access to
// stdout/stderr; all three are released together by Close.
type Process struct {
	sessionID int
	args      []string
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	sink      Sink

	// capture is the shared bounded queue both stream readers push
	// sentinel-delimited lines onto.
	capture chan string

	// streamsDone closes once both reader goroutines have exited.
	streamsDone chan struct{}

	mu       sync.Mutex
	closed   bool
	exitCode int
}

// Spawn starts commandLine with redirected stdin/stdout/stderr and launches
// one reader goroutine per output stream. sink may be nil.
func Spawn(commandLine string, sessionID int, sink Sink) (*Process, error) {
	if sink == nil {
		sink = NopSink{}
	}

	args, err := shlex.Split(commandLine)
	if err != nil {
		return nil, fmt.Errorf("parse command %q: %v: %w", commandLine, err, ErrSpawn)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("empty command line: %w", ErrSpawn)
	}

	cmd := exec.Command(args[0], args[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %v: %w", err, ErrSpawn)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %v: %w", err, ErrSpawn)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %v: %w", err, ErrSpawn)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %q: %v: %w", commandLine, err, ErrSpawn)
	}

	p := &Process{
		sessionID:   sessionID,
		args:        args,
		cmd:         cmd,
		stdin:       stdin,
		sink:        sink,
		capture:     make(chan string, captureQueueSize),
		streamsDone: make(chan struct{}),
	}

	var readers sync.WaitGroup
	readers.Add(2)
	go func() {
		defer readers.Done()
		r := &outputReader{stream: "stdout", sessionID: sessionID, sink: sink, queue: p.capture}
		r.run(stdout)
	}()
	go func() {
		defer readers.Done()
		r := &outputReader{stream: "stderr", sessionID: sessionID, sink: sink, queue: p.capture}
		r.run(stderr)
	}()
	go func() {
		readers.Wait()
		close(p.streamsDone)
	}()

	sink.Emit(TierLifecycle, sessionID, fmt.Sprintf("started %q (pid %d)", commandLine, cmd.Process.Pid))
	return p, nil
}

// Write appends text verbatim to the process's stdin. No newline is added.
func (p *Process) Write(text string) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return fmt.Errorf("process closed: %w", ErrIO)
	}

	n, err := io.WriteString(p.stdin, text)
	if err != nil {
		return fmt.Errorf("write: %v: %w", err, ErrIO)
	}
	if n < len(text) {
		return fmt.Errorf("short write (%d of %d bytes): %w", n, len(text), ErrIO)
	}
	p.sink.Emit(TierEcho, p.sessionID, strings.TrimRight(text, "\n"))
	return nil
}

// IsRunning is a non-blocking liveness check.
func (p *Process) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case <-p.streamsDone:
		return false
	default:
		return true
	}
}

// Drain pops captured lines until the end terminator (exclusive).
// If both output streams close before the terminator arrives, whatever was
// queued is returned together with ErrProtocolStall.
func (p *Process) Drain() ([]string, error) {
	var lines []string
	for {
		select {
		case line := <-p.capture:
			if line == captureEnd {
				return lines, nil
			}
			lines = append(lines, line)
		case <-p.streamsDone:
			// Streams are gone; flush whatever is still queued.
			for {
				select {
				case line := <-p.capture:
					if line == captureEnd {
						return lines, nil
					}
					lines = append(lines, line)
				default:
					return lines, fmt.Errorf("session %d: %w", p.sessionID, ErrProtocolStall)
				}
			}
		}
	}
}

// SendCapture brackets lines in the capture sentinels, writes everything to
// the process and returns the reply it printed in between. With no lines it
// degenerates to a pure synchronization round-trip.
func (p *Process) SendCapture(lines ...string) ([]string, error) {
	if err := p.Write("print '" + captureBegin + "'\n"); err != nil {
		return nil, err
	}
	for _, line := range lines {
		if err := p.Write(line + "\n"); err != nil {
			return nil, err
		}
	}
	if err := p.Write("print '" + captureEnd + "'\n"); err != nil {
		return nil, err
	}
	return p.Drain()
}

// Close shuts the process down: best-effort quit, stdin closed, readers
// drained, process reaped. Blocks until exit and returns the exit code.
// Closing an already-closed process returns the cached exit code.
func (p *Process) Close() (int, error) {
	p.mu.Lock()
	if p.closed {
		code := p.exitCode
		p.mu.Unlock()
		return code, nil
	}
	p.closed = true
	p.mu.Unlock()

	// Ask politely first; EOF on stdin is the real signal.
	_, _ = io.WriteString(p.stdin, "quit\n")
	_ = p.stdin.Close()

	// Discard stale captured lines while waiting, otherwise a reader blocked
	// on a full capture queue could never exit.
	deadline := time.After(closeGrace)
	killed := false
waitReaders:
	for {
		select {
		case <-p.streamsDone:
			break waitReaders
		case <-p.capture:
		case <-deadline:
			if killed {
				break waitReaders
			}
			killed = true
			procLog.Warn("close_timeout_killing", "session", p.sessionID)
			_ = p.cmd.Process.Kill()
			deadline = time.After(closeGrace)
		}
	}

	code := 0
	if err := p.cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		} else {
			return -1, fmt.Errorf("wait: %w", err)
		}
	}

	p.mu.Lock()
	p.exitCode = code
	p.mu.Unlock()

	p.sink.Emit(TierLifecycle, p.sessionID, fmt.Sprintf("exited with code %d", code))
	return code, nil
}
