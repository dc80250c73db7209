package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/plotdeck/plotdeck/internal/gnuplot"
	"github.com/plotdeck/plotdeck/internal/history"
	"github.com/plotdeck/plotdeck/internal/logging"
	"github.com/plotdeck/plotdeck/internal/session"
)

const Version = "0.3.0"

var (
	flagConfig    string
	flagGnuplot   string
	flagVerbosity int
	flagDebug     bool
)

var rootCmd = &cobra.Command{
	Use:   "plotdeck",
	Short: "plotdeck - scripted gnuplot sessions",
	Long: `plotdeck drives one or more gnuplot processes over pipes. Commands,
inline data blocks and plot statements are recorded per session, so any
figure can be reconstructed, re-rendered or saved as a standalone script.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ~/.plotdeck/config.toml)")
	rootCmd.PersistentFlags().StringVar(&flagGnuplot, "gnuplot", "", "gnuplot command line (overrides config)")
	rootCmd.PersistentFlags().IntVarP(&flagVerbosity, "verbosity", "v", -1, "I/O echo threshold 0-4 (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(replCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the TOML config and applies flag overrides on top.
func loadConfig() (*session.UserConfig, error) {
	cfg, err := session.LoadUserConfig(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagGnuplot != "" {
		cfg.Gnuplot = flagGnuplot
	}
	if flagVerbosity >= 0 {
		cfg.Verbosity = flagVerbosity
		if cfg.Verbosity > 4 {
			cfg.Verbosity = 4
		}
	}
	return cfg, nil
}

// openRegistry initializes logging, runs the gnuplot version preflight and
// wires up the history store. The returned cleanup closes all sessions.
func openRegistry(cfg *session.UserConfig) (*session.Registry, func(), error) {
	logDir := cfg.Logs.Dir
	if logDir == "" {
		if dir, err := session.DefaultConfigDir(); err == nil {
			logDir = dir
		}
	}
	logging.Init(logging.Config{
		LogDir:     logDir,
		Level:      cfg.Logs.Level,
		Format:     cfg.Logs.Format,
		MaxSizeMB:  cfg.Logs.MaxSizeMB,
		MaxBackups: cfg.Logs.MaxBackups,
		MaxAgeDays: cfg.Logs.MaxAgeDays,
		Compress:   cfg.Logs.Compress,
		Debug:      flagDebug,
	})

	if !cfg.SkipVersionCheck {
		if _, err := gnuplot.QueryVersion(cfg.Gnuplot); err != nil {
			logging.Shutdown()
			return nil, nil, fmt.Errorf("gnuplot preflight: %w", err)
		}
	}

	regCfg := session.Config{
		Command: cfg.Gnuplot,
		Startup: cfg.Startup,
		Sink:    gnuplot.NewLogSink(cfg.Verbosity),
	}

	var store *history.Store
	if cfg.History.Enabled {
		path, err := cfg.HistoryPath()
		if err != nil {
			logging.Shutdown()
			return nil, nil, err
		}
		store, err = history.Open(path)
		if err != nil {
			logging.Shutdown()
			return nil, nil, err
		}
		regCfg.History = store
	}

	reg := session.NewRegistry(regCfg)
	cleanup := func() {
		if err := reg.CloseAll(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing sessions: %v\n", err)
		}
		if store != nil {
			_ = store.Close()
		}
		logging.Shutdown()
	}
	return reg, cleanup, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
