package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// versionCmd prints the co2dash version.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "co2dash %s\n", Version)
	},
}
