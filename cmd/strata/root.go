package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "Recursive task execution orchestrator",
	Long: `Strata executes task trees through pluggable strategies.

Tasks are analyzed for complexity, dependencies, and parallelization
potential; the orchestrator picks an execution strategy (atomic,
sequential, parallel, or recursive decomposition), schedules work under
a bounded queue, and routes failures through a recovery engine.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (default: XDG paths)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(versionCmd)
}
