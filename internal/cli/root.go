// Package cli wires the collector's cobra commands.
package cli

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "nile-collector",
	Short: "Nile event collector",
	Long: `nile-collector is a Splunk HEC-compatible ingestion service for
Nile network events. It accepts audit trail, alert, and end-user device
events over the HEC wire protocol, validates them against per-type
schemas, and stores them per user for later retrieval.`,
	Version: "0.1.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml or /etc/nile-collector/config.yaml)")
}
