package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/plotdeck/plotdeck/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch <script.gp>",
	Short: "Re-run a script whenever it changes",
	Long: `Run the script once, then watch it for changes. On every save the
session is reset and the script is replayed, so the rendered figure always
matches the file. Stop with Ctrl-C.`,
	Args:          cobra.ExactArgs(1),
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

		reload := func(path string) error {
			lines, err := readScript(path)
			if err != nil {
				return err
			}
			if reg.CurrentID() != 0 {
				if err := reg.Reset(); err != nil {
					return err
				}
			}
			if _, err := reg.ExecScript(lines...); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "reloaded %s\n", path)
			return nil
		}

		if err := reload(args[0]); err != nil {
			return err
		}

		w, err := watch.NewScriptWatcher(args[0], reload)
		if err != nil {
			return err
		}
		go w.Start()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		select {
		case <-ctx.Done():
		case <-w.Done():
		}
		w.Stop()
		return nil
	},
}
