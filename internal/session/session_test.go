package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plotdeck/plotdeck/internal/gnuplot"
)

// fakeProc records writes and answers captures with canned lines, so the
// session logic is exercised without a live gnuplot.
type fakeProc struct {
	writes   []string   // every Write payload, newlines intact
	captures [][]string // every SendCapture batch
	reply    []string
	running  bool
	closed   bool
	exitCode int
}

func newFakeProc() *fakeProc {
	return &fakeProc{running: true}
}

func (f *fakeProc) Write(text string) error {
	if !f.running {
		return gnuplot.ErrIO
	}
	f.writes = append(f.writes, text)
	return nil
}

func (f *fakeProc) SendCapture(lines ...string) ([]string, error) {
	if !f.running {
		return nil, gnuplot.ErrNotRunning
	}
	f.captures = append(f.captures, lines)
	return f.reply, nil
}

func (f *fakeProc) IsRunning() bool { return f.running }

func (f *fakeProc) Close() (int, error) {
	f.running = false
	f.closed = true
	return f.exitCode, nil
}

// sentLines returns the writes with trailing newlines stripped.
func (f *fakeProc) sentLines() []string {
	out := make([]string, len(f.writes))
	for i, w := range f.writes {
		out[i] = strings.TrimSuffix(w, "\n")
	}
	return out
}

func testSession(startup ...string) (*Session, *fakeProc) {
	f := newFakeProc()
	return newSession(1, f, startup), f
}

func TestAddCommandIndexZeroSendsImmediately(t *testing.T) {
	s, f := testSession()

	require.NoError(t, s.AddCommand("set title 'x'"))
	assert.Equal(t, []string{"set title 'x'"}, f.sentLines())
}

func TestAddCommandDeferredInMultiplot(t *testing.T) {
	s, f := testSession()

	require.NoError(t, s.StartMultiplot(""))
	sent := len(f.writes)
	require.NoError(t, s.AddCommand("set title 'panel'"))
	assert.Len(t, f.writes, sent, "commands at index > 0 are deferred to dump time")
}

func TestAddDataEmitsBlockAndRecordsIt(t *testing.T) {
	s, f := testSession()

	name, err := s.AddData("", []float64{1, 2, 3}, []float64{1, 4, 9})
	require.NoError(t, err)
	assert.Equal(t, "$data1", name)

	want := []string{"$data1 << EOD", "1 1", "2 4", "3 9", "EOD"}
	assert.Equal(t, want, f.sentLines(), "start delimiter, N rows, end delimiter")
	assert.Equal(t, want, s.Script(DumpMode{Data: true}), "block appears verbatim in the dump")
}

func TestAddDataShapeMismatch(t *testing.T) {
	s, f := testSession()

	_, err := s.AddData("", []float64{1, 2, 3}, []float64{1, 4})
	require.ErrorIs(t, err, gnuplot.ErrShapeMismatch)
	assert.Empty(t, f.writes, "no process writes on failure")
	assert.Empty(t, s.Script(DumpMode{Data: true}), "no log mutation on failure")

	_, err = s.AddData("empty")
	require.ErrorIs(t, err, gnuplot.ErrShapeMismatch)
}

func TestAddDataGeneratedNamesAreUnique(t *testing.T) {
	s, _ := testSession()

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		name, err := s.AddData("", []float64{1})
		require.NoError(t, err)
		require.False(t, seen[name], "generated name %s reused", name)
		seen[name] = true
	}
}

func TestAddDataCallerNamePrefixed(t *testing.T) {
	s, _ := testSession()

	name, err := s.AddData("mine", []float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, "$mine", name)

	name, err = s.AddData("$already", []float64{1})
	require.NoError(t, err)
	assert.Equal(t, "$already", name)
}

func TestAddPlotDataUsesLastBlock(t *testing.T) {
	s, _ := testSession()

	require.ErrorIs(t, s.AddPlotData("w l"), gnuplot.ErrState, "no block yet")

	_, err := s.AddData("", []float64{1, 2})
	require.NoError(t, err)
	require.NoError(t, s.AddPlotData("w l"))

	script := s.Script(DumpMode{})
	require.Len(t, script, 1)
	assert.Equal(t, "plot $data1 w l", script[0])
}

func TestAddPlotFileQuotesPath(t *testing.T) {
	s, _ := testSession()
	s.AddPlotFile("data/points.dat", "u 1:2 w p")

	script := s.Script(DumpMode{})
	require.Len(t, script, 1)
	assert.Equal(t, "plot 'data/points.dat' u 1:2 w p", script[0])
}

func TestStartMultiplotTwiceFails(t *testing.T) {
	s, f := testSession()

	require.NoError(t, s.StartMultiplot("layout 2,1"))
	assert.Equal(t, []string{"set multiplot layout 2,1"}, f.sentLines())

	err := s.StartMultiplot("layout 2,1")
	require.ErrorIs(t, err, gnuplot.ErrState)
}

func TestSplotMode(t *testing.T) {
	s, _ := testSession()
	s.SetSplot(true)
	s.AddPlot("sin(x)*cos(y)")

	script := s.Script(DumpMode{})
	require.Len(t, script, 1)
	assert.Equal(t, "splot sin(x)*cos(y)", script[0])
}

func TestCombinedPlotStatementContinuationLines(t *testing.T) {
	s, _ := testSession()
	s.AddPlot("sin(x)")
	s.AddPlot("cos(x)")
	s.AddPlot("tan(x)")

	script := s.Script(DumpMode{})
	assert.Equal(t, []string{
		"plot sin(x), \\",
		"  cos(x), \\",
		"  tan(x)",
	}, script)
}

func TestResetClearsLogAndReplaysStartup(t *testing.T) {
	s, f := testSession("set term pngcairo")

	require.NoError(t, s.AddCommand("set grid"))
	_, err := s.AddData("", []float64{1})
	require.NoError(t, err)

	require.NoError(t, s.Reset())
	require.Len(t, f.captures, 1)
	assert.Equal(t, []string{"reset session"}, f.captures[0])

	// Dump(full) right after reset reproduces the reset line plus startup.
	assert.Equal(t, []string{"reset session", "set term pngcairo"},
		s.Script(DumpMode{Full: true}))
}

func TestDumpExampleScenario(t *testing.T) {
	s, _ := testSession()

	require.NoError(t, s.AddCommand("set title 'x'"))
	name, err := s.AddData("", []float64{1, 2, 3}, []float64{1, 4, 9})
	require.NoError(t, err)
	require.NoError(t, s.AddPlotData("w l"))

	assert.Equal(t, []string{
		"reset session",
		name + " << EOD",
		"1 1",
		"2 4",
		"3 9",
		"EOD",
		"set title 'x'",
		"plot " + name + " w l",
	}, s.Script(DumpMode{Full: true}))
}

func TestDumpGroupsByAscendingMultiplotIndex(t *testing.T) {
	s, _ := testSession()

	// Arbitrary insertion order across indices 0..2.
	s.AddPlotAt("panel2curve", 2)
	require.NoError(t, s.AddCommandAt("set title 'p1'", 1))
	require.NoError(t, s.AddCommandAt("set grid", 0))
	s.AddPlotAt("panel1curve", 1)
	require.NoError(t, s.AddCommandAt("set title 'p2'", 2))
	s.log.mpIndex = 2

	assert.Equal(t, []string{
		"reset session",
		"set grid",
		"set title 'p1'",
		"plot panel1curve",
		"set title 'p2'",
		"plot panel2curve",
		"unset multiplot",
	}, s.Script(DumpMode{Full: true}))
}

func TestDumpWithoutFullSkipsIndexZeroCommands(t *testing.T) {
	s, _ := testSession()

	require.NoError(t, s.AddCommand("set grid"))
	s.AddPlot("sin(x)")

	// Index-0 commands were already sent when recorded, so a non-full dump
	// emits only the plot statement.
	assert.Equal(t, []string{"plot sin(x)"}, s.Script(DumpMode{}))
}

func TestPlotFragmentsValidWithoutCommandsAtSameIndex(t *testing.T) {
	s, _ := testSession()

	require.NoError(t, s.StartMultiplot(""))
	s.AddPlot("sin(x)")
	s.AdvanceMultiplot()
	s.AddPlot("cos(x)")

	assert.Equal(t, []string{
		"reset session",
		"set multiplot",
		"plot sin(x)",
		"plot cos(x)",
		"unset multiplot",
	}, s.Script(DumpMode{Full: true}))
}

func TestDumpSendsThroughCaptureRoundTrip(t *testing.T) {
	s, f := testSession()

	require.NoError(t, s.AddCommand("set grid"))
	s.AddPlot("sin(x)")

	lines, err := s.Dump(DumpMode{Full: true})
	require.NoError(t, err)
	require.Len(t, f.captures, 1)
	assert.Equal(t, lines, f.captures[0], "the reconstruction is sent inside one capture batch")
}

func TestDumpDryDoesNotTouchProcess(t *testing.T) {
	s, f := testSession()
	s.AddPlot("sin(x)")

	_, err := s.Dump(DumpMode{Full: true, Dry: true})
	require.NoError(t, err)
	assert.Empty(t, f.captures)
}

func TestSaveWritesFullScript(t *testing.T) {
	s, _ := testSession()

	require.NoError(t, s.AddCommand("set grid"))
	s.AddPlot("sin(x)")

	var buf strings.Builder
	require.NoError(t, s.Save(&buf))
	assert.Equal(t, "reset session\nset grid\nplot sin(x)\n", buf.String())
}
