package gnuplot

import "errors"

// Error taxonomy shared by the process layer and the session layer.
// All errors surfaced to callers wrap one of these sentinels, so callers
// classify with errors.Is and still get full context from the message.
var (
	// ErrSpawn indicates the external process failed to start, or failed
	// the version preflight check.
	ErrSpawn = errors.New("gnuplot failed to start")

	// ErrNotRunning indicates an operation targeted a dead process.
	ErrNotRunning = errors.New("gnuplot process is not running")

	// ErrNotFound indicates an unknown session ID.
	ErrNotFound = errors.New("session not found")

	// ErrState indicates an operation invalid in the current session state,
	// e.g. starting a multiplot while one is already active.
	ErrState = errors.New("invalid session state")

	// ErrShapeMismatch indicates data columns of unequal length.
	ErrShapeMismatch = errors.New("data columns have unequal lengths")

	// ErrIO indicates a failed or short write to the process input stream.
	ErrIO = errors.New("write to gnuplot failed")

	// ErrProtocolStall indicates a capture drain saw the stream close
	// before the end terminator arrived. Lines read so far are returned
	// alongside, but must not be mistaken for a complete reply.
	ErrProtocolStall = errors.New("output stream closed before capture terminator")
)
