package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "swarmdoc",
	Short: "Lock-coordinated parallel content processing",
	Long: `Swarmdoc runs a pool of worker processes over a content tree,
coordinating them with per-task lock files so every file is processed
exactly once, then gates a single git commit on an external quality check.

A run:
- Enumerates the processable files under the content root
- Spawns N workers that claim tasks via atomic lock-file creation
- Tracks per-task state in a shared progress file
- Runs the quality gate after all workers drain
- Commits the mutated content only when the gate passes

Configuration lives in ~/.config/swarmdoc/config.yaml with project
overrides in .swarmdoc.yaml. Any key can be overridden with SWARMDOC_*
environment variables.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(locksCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
