package commands

import (
	"github.com/spf13/cobra"
)

var verbose bool

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "signalctl",
	Short: "CapitolSignal - politician disclosure trading signal engine",
	Long: `CapitolSignal Unified CLI

Generates confidence-scored trading signals from politician stock
disclosures, optionally blended with ML predictions.

Usage:
  go run ./cmd/signalctl [command]

Examples:
  go run ./cmd/signalctl api
  go run ./cmd/signalctl scheduler
  go run ./cmd/signalctl generate --lookback 30
  go run ./cmd/signalctl test-db`,
}

// Execute runs the root command. Called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
