package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "sigma",
	Short: "SIGMA - position-aware trading signal engine",
	Long: `SIGMA turns market data into BUY/SELL/HOLD recommendations with
confidence, entry, stop-loss and take-profit levels, adjusted for the
market regime and the caller's existing position.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
