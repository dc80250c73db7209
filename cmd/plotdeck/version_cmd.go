package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plotdeck/plotdeck/internal/gnuplot"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show plotdeck and gnuplot versions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("plotdeck %s\n", Version)

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		v, err := gnuplot.QueryVersion(cfg.Gnuplot)
		if err != nil {
			fmt.Printf("gnuplot: %v\n", err)
			return nil
		}
		fmt.Printf("gnuplot %s\n", v)
		return nil
	},
}
