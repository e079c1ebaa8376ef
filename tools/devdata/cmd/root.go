package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "devdata",
	Short:        "Build mail trees for mailaddrs development",
	Long:         "devdata generates synthetic Maildir trees and copies expendable subsets of real ones, for testing and benchmarking mailaddrs backends.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
