package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var execSave string

var execCmd = &cobra.Command{
	Use:   "exec <script.gp> [more scripts...]",
	Short: "Run gnuplot script files in one session",
	Long: `Run one or more script files through a single session. Each file is
sent as one batch; any output gnuplot prints is written to stdout. With
--save, the session's reconstructed script is written out afterwards.`,
	Args:          cobra.MinimumNArgs(1),
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, cleanup, err := openRegistry(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		for _, path := range args {
			lines, err := readScript(path)
			if err != nil {
				return err
			}
			out, err := reg.ExecScript(lines...)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			for _, line := range out {
				fmt.Println(line)
			}
		}

		if execSave != "" {
			f, err := os.Create(execSave)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := reg.Save(f); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "saved %s\n", execSave)
		}
		return nil
	},
}

func init() {
	execCmd.Flags().StringVar(&execSave, "save", "", "write the session's reconstructed script to this file")
}

// readScript loads a script file and returns its non-blank lines.
// Full-line comments are dropped; gnuplot never needs to see them.
func readScript(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}

	var lines []string
	for _, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}
