package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plotdeck/plotdeck/internal/history"
)

var (
	historyLimit   int
	historySession int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded session activity",
	Long: `Print entries from the history database: every command, data block
and plot statement recorded through past sessions.`,
	Args:          cobra.NoArgs,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.History.Enabled {
			return fmt.Errorf("history is disabled in the config")
		}
		path, err := cfg.HistoryPath()
		if err != nil {
			return err
		}
		store, err := history.Open(path)
		if err != nil {
			return err
		}
		defer store.Close()

		var entries []history.Entry
		if historySession > 0 {
			entries, err = store.BySession(historySession)
		} else {
			entries, err = store.Recent(historyLimit)
		}
		if err != nil {
			return err
		}

		for _, e := range entries {
			fmt.Printf("%s  s%-3d %-7s %s\n",
				e.CreatedAt.Format("2006-01-02 15:04:05"), e.SessionID, e.Kind, e.Text)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries to show")
	historyCmd.Flags().IntVar(&historySession, "session", 0, "show all entries for one session ID")
}
