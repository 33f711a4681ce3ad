package cmd

import (
	"github.com/spf13/cobra"

	"github.com/warebox/conveyor/internal/logger"
)

var (
	debug    bool
	verbose  bool
	jsonLogs bool
	quiet    bool
	version  = "v0.1.0"

	rootCmd = &cobra.Command{
		Use:   "conveyor",
		Short: "A task pipeline for loading wikipedia pageview data into a warehouse",
		Long: `Conveyor runs a dependency-ordered data pipeline: it extracts raw wikipedia
pageview dumps, transforms them into load-ready files, bulk loads them into a
warehouse table and shuts down the clusters it used. Completed stages are
recorded as durable markers, so an interrupted run resumes where it stopped.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Setup(verbose || debug, jsonLogs, quiet)
		},
	}
)

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")

	rootCmd.AddCommand(runCmd)
}
