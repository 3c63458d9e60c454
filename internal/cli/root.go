// Package cli wires the trio command surface.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "trio",
	Short: "Three-stage delivery pipeline for AI collaborators",
	Long: "trio — drives a plan → implement → review workflow across three\n" +
		"externally-configured collaborators, persisting all state in a single\n" +
		"context record.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(implementCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(addTaskCmd)
	rootCmd.AddCommand(transitionCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(watchCmd)
}
