package gnuplot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spawnCat starts `cat` as a stand-in external process: every line written
// to stdin comes straight back on stdout, including the sentinel markers.
func spawnCat(t *testing.T) *Process {
	t.Helper()
	p, err := Spawn("cat", 1, NopSink{})
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = p.Close() })
	return p
}

func TestSpawnUnknownBinary(t *testing.T) {
	_, err := Spawn("definitely-not-a-real-binary-a8f3", 1, nil)
	require.ErrorIs(t, err, ErrSpawn)
}

func TestSpawnEmptyCommand(t *testing.T) {
	_, err := Spawn("", 1, nil)
	require.ErrorIs(t, err, ErrSpawn)
}

func TestProcessLifecycle(t *testing.T) {
	p := spawnCat(t)
	assert.True(t, p.IsRunning())

	code, err := p.Close()
	require.NoError(t, err)
	assert.Equal(t, 0, code, "cat exits cleanly on stdin EOF")
	assert.False(t, p.IsRunning())

	// Idempotent: second close returns the cached exit code.
	code2, err := p.Close()
	require.NoError(t, err)
	assert.Equal(t, code, code2)
}

func TestWriteAfterCloseFails(t *testing.T) {
	p := spawnCat(t)
	_, err := p.Close()
	require.NoError(t, err)

	err = p.Write("anything\n")
	require.ErrorIs(t, err, ErrIO)
}

func TestCaptureRoundTripThroughEcho(t *testing.T) {
	p := spawnCat(t)

	// cat echoes the raw marker lines verbatim, driving the reader's
	// capture state machine exactly like gnuplot's print replies would.
	require.NoError(t, p.Write(captureBegin+"\n"))
	require.NoError(t, p.Write("alpha\n"))
	require.NoError(t, p.Write("beta\n"))
	require.NoError(t, p.Write(captureEnd+"\n"))

	lines, err := p.Drain()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, lines)
}

func TestCaptureOrderPreserved(t *testing.T) {
	p := spawnCat(t)

	require.NoError(t, p.Write(captureBegin+"\n"))
	want := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		line := "row-" + string(rune('a'+i))
		want = append(want, line)
		require.NoError(t, p.Write(line+"\n"))
	}
	require.NoError(t, p.Write(captureEnd+"\n"))

	lines, err := p.Drain()
	require.NoError(t, err)
	assert.Equal(t, want, lines, "capture queue preserves emission order")
}

func TestDrainStallOnProcessExit(t *testing.T) {
	p := spawnCat(t)

	require.NoError(t, p.Write(captureBegin+"\n"))
	// Give the reader a moment to enter capture mode before EOF.
	time.Sleep(50 * time.Millisecond)
	_, err := p.Close()
	require.NoError(t, err)

	_, err = p.Drain()
	require.ErrorIs(t, err, ErrProtocolStall)
}

func TestIsRunningAfterProcessDies(t *testing.T) {
	p, err := Spawn("true", 1, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = p.Close() })

	// `true` exits immediately; the readers observe EOF shortly after.
	require.Eventually(t, func() bool { return !p.IsRunning() },
		2*time.Second, 10*time.Millisecond)
}
