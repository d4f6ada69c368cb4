package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"go-co2-emissions-dashboard/internal/config"
	"go-co2-emissions-dashboard/internal/logging"
)

// Global flag values.
var (
	verbose bool
	quiet   bool
	noColor bool
)

// appConfig is loaded once before any subcommand runs.
var appConfig config.Config

// rootCmd is the base command for co2dash. Without a subcommand it serves the
// dashboard.
var rootCmd = &cobra.Command{
	Use:   "co2dash",
	Short: "Interactive dashboard of national CO2 emissions",
	Long: `co2dash serves a browser dashboard of carbon dioxide emissions by country
and year: a world map, the top emitters by fossil fuel and emissions by fuel
over time. It can also export charts and snapshots, print summaries and seed
a SQLite dataset from a CSV file.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE:              runServe,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(versionCmd)
}

func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return err
	}
	appConfig = cfg
	if noColor {
		color.NoColor = true
	}
	logging.Setup(logging.VerbosityLevel(verbose, quiet, cfg.LogLevel), cfg.LogFormat, cmd.ErrOrStderr())
	return nil
}
