package session

import (
	"fmt"
)

// entry is one logged command or plot fragment, tagged with the multiplot
// index it belongs to. Index 0 means "no multiplot, applied immediately".
type entry struct {
	text string
	mp   int
}

// Log is a session's replayable script: every command, inline data block and
// plot fragment in insertion order, partitioned by multiplot index.
type Log struct {
	mpIndex    int
	commands   []entry
	dataLines  []string
	plots      []entry
	splot      bool
	blockCount int
	lastBlock  string
}

func newLog() *Log {
	return &Log{}
}

// nextBlockName generates a unique data-block name. The counter is never
// reset except by a full session reset, so generated names cannot collide.
func (l *Log) nextBlockName() string {
	l.blockCount++
	return fmt.Sprintf("$data%d", l.blockCount)
}

// DumpMode selects what Dump reconstructs and where it goes.
type DumpMode struct {
	// Full prepends a reset instruction, includes data blocks and includes
	// index-0 commands (which were already sent when recorded).
	Full bool

	// Data includes the stored data-block lines even when Full is unset.
	Data bool

	// Dry builds the script without sending it to the process.
	Dry bool
}

// script deterministically reconstructs the session script from the log,
// independent of how the entries were produced:
//
//  1. reset instruction when Full,
//  2. stored data-block lines in insertion order when Full or Data,
//  3. per multiplot index, ascending: commands first (index 0 only when
//     Full), then one combined plot statement over that index's fragments,
//  4. a closing unset multiplot when a multiplot is active.
func (l *Log) script(mode DumpMode) []string {
	var out []string
	if mode.Full {
		out = append(out, "reset session")
	}
	if mode.Full || mode.Data {
		out = append(out, l.dataLines...)
	}

	for k := 0; k <= l.mpIndex; k++ {
		if k > 0 || mode.Full {
			for _, c := range l.commands {
				if c.mp == k {
					out = append(out, c.text)
				}
			}
		}
		out = append(out, l.plotStatement(k)...)
	}

	if l.mpIndex > 0 {
		out = append(out, "unset multiplot")
	}
	return out
}

// plotStatement joins every fragment tagged with index k into one plot (or
// splot) statement, each fragment on its own continuation line.
func (l *Log) plotStatement(k int) []string {
	var frags []string
	for _, p := range l.plots {
		if p.mp == k {
			frags = append(frags, p.text)
		}
	}
	if len(frags) == 0 {
		return nil
	}

	verb := "plot "
	if l.splot {
		verb = "splot "
	}

	lines := make([]string, 0, len(frags))
	for i, f := range frags {
		line := "  " + f
		if i == 0 {
			line = verb + f
		}
		if i < len(frags)-1 {
			line += ", \\"
		}
		lines = append(lines, line)
	}
	return lines
}
