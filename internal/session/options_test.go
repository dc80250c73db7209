package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlotOptionsCommands(t *testing.T) {
	tests := []struct {
		name string
		opts PlotOptions
		want []string
	}{
		{
			name: "empty",
			opts: PlotOptions{},
			want: nil,
		},
		{
			name: "title quoting",
			opts: PlotOptions{Title: "it's noisy"},
			want: []string{"set title 'it''s noisy'"},
		},
		{
			name: "labels",
			opts: PlotOptions{XLabel: "time", YLabel: "volts"},
			want: []string{"set xlabel 'time'", "set ylabel 'volts'"},
		},
		{
			name: "ranges normalized",
			opts: PlotOptions{XRange: "0:10", YRange: "[-1:1]"},
			want: []string{"set xrange [0:10]", "set yrange [-1:1]"},
		},
		{
			name: "log scales",
			opts: PlotOptions{LogX: true, LogZ: true},
			want: []string{"set logscale x", "set logscale z"},
		},
		{
			name: "key off",
			opts: PlotOptions{Key: "off"},
			want: []string{"unset key"},
		},
		{
			name: "key position",
			opts: PlotOptions{Key: "left top"},
			want: []string{"set key left top"},
		},
		{
			name: "extra appended last",
			opts: PlotOptions{Grid: true, Extra: []string{"set samples 1000"}},
			want: []string{"set grid", "set samples 1000"},
		},
		{
			name: "everything in fixed order",
			opts: PlotOptions{
				Title:  "t",
				XLabel: "x",
				XRange: "0:1",
				LogY:   true,
				Grid:   true,
				Key:    "off",
			},
			want: []string{
				"set title 't'",
				"set xlabel 'x'",
				"set xrange [0:1]",
				"set logscale y",
				"set grid",
				"unset key",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opts.Commands())
		})
	}
}
