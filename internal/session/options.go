package session

import "strings"

// PlotOptions is the shorthand layer: each recognized option maps to a fixed
// gnuplot `set` command template. Options expand to plain commands and feed
// the normal command path, so they are logged and replayed like anything
// typed by hand.
type PlotOptions struct {
	Title  string
	XLabel string
	YLabel string
	ZLabel string

	// Ranges accept "lo:hi" or "[lo:hi]".
	XRange string
	YRange string
	ZRange string

	LogX bool
	LogY bool
	LogZ bool

	Grid bool

	// Key positions the legend ("left top", "outside", ...); "off" unsets it.
	Key string

	// Extra commands are appended verbatim after the expanded options.
	Extra []string
}

// Commands expands the options into gnuplot commands, in a fixed order so
// the expansion is deterministic.
func (o PlotOptions) Commands() []string {
	var cmds []string

	if o.Title != "" {
		cmds = append(cmds, "set title "+quote(o.Title))
	}
	if o.XLabel != "" {
		cmds = append(cmds, "set xlabel "+quote(o.XLabel))
	}
	if o.YLabel != "" {
		cmds = append(cmds, "set ylabel "+quote(o.YLabel))
	}
	if o.ZLabel != "" {
		cmds = append(cmds, "set zlabel "+quote(o.ZLabel))
	}

	if o.XRange != "" {
		cmds = append(cmds, "set xrange "+bracket(o.XRange))
	}
	if o.YRange != "" {
		cmds = append(cmds, "set yrange "+bracket(o.YRange))
	}
	if o.ZRange != "" {
		cmds = append(cmds, "set zrange "+bracket(o.ZRange))
	}

	if o.LogX {
		cmds = append(cmds, "set logscale x")
	}
	if o.LogY {
		cmds = append(cmds, "set logscale y")
	}
	if o.LogZ {
		cmds = append(cmds, "set logscale z")
	}

	if o.Grid {
		cmds = append(cmds, "set grid")
	}

	switch o.Key {
	case "":
	case "off":
		cmds = append(cmds, "unset key")
	default:
		cmds = append(cmds, "set key "+o.Key)
	}

	cmds = append(cmds, o.Extra...)
	return cmds
}

// quote single-quotes a string for gnuplot, doubling embedded quotes.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// bracket normalizes a range spec to gnuplot's [lo:hi] form.
func bracket(r string) string {
	r = strings.TrimSpace(r)
	if strings.HasPrefix(r, "[") {
		return r
	}
	return "[" + r + "]"
}
