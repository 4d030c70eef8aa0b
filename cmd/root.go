// Package cmd provides the CLI for the agents routing engine.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagConfig  string
	flagRoot    string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "agents",
	Short: "Agents - semantic routing and prompt composition",
	Long: `Agents routes user queries to agent profiles using a semantic cache
with classifier fallback, and composes enriched system prompts from
annotated document libraries.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Path to agents.yaml")
	rootCmd.PersistentFlags().StringVarP(&flagRoot, "root", "r", "", "Repository root holding the .cursor tree")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
}

// newLogger builds the process logger honoring --verbose.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
