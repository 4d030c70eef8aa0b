package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/WonderMr/agents/core/reqcontext"
)

var serveHistoryTurns int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Interactive routing session",
	Long: `Read queries from stdin, one per line, and print the routed agent
and composed prompt summary for each. The document libraries are watched
for changes and re-indexed on the fly. Conversation history accumulates
across lines; enter "/clear" to reset it and "/quit" to exit.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&serveHistoryTurns, "history-turns", 8, "Turns of history to carry between queries")
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := newLogger()
	app, err := newApp(logger)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.watch(); err != nil {
		return err
	}
	if err := app.orchestrator.Warm(cmd.Context()); err != nil {
		logger.Warn("library warmup failed", "error", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "agents ready; /clear resets history, /quit exits")

	var history []string
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			return nil
		case line == "/clear":
			history = nil
			app.orchestrator.ClearSessions()
			fmt.Fprintln(out, "history and session cache cleared")
			continue
		}

		comp, err := app.orchestrator.Compose(cmd.Context(), reqcontext.Query{
			Text:    line,
			History: history,
		}, "")
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}

		fmt.Fprintf(out, "-> %s (cached=%v, session=%v, skills=%d, implants=%d)\n",
			comp.Agent, comp.Decision.IsCached, comp.FromSession,
			len(comp.Skills), len(comp.Implants))

		history = append(history, line)
		if len(history) > serveHistoryTurns {
			history = history[len(history)-serveHistoryTurns:]
		}
	}
	return scanner.Err()
}
