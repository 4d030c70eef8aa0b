package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/WonderMr/agents/core/reqcontext"
	"github.com/WonderMr/agents/core/retrieval"
)

var (
	composeAgent   string
	composeHistory []string
	composeJSON    bool
)

var composeCmd = &cobra.Command{
	Use:   "compose <query>",
	Short: "Compose the enriched system prompt for a query",
	Long: `Route a query (or pin an agent with --agent), load the agent's
system prompt with all references expanded, and enrich it with the
relevant skills and implants.

Examples:
  agents compose "refactor the payment service"
  agents compose --agent developer "refactor the payment service"
  agents compose --json "review this diff" | jq .system_prompt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCompose,
}

func init() {
	rootCmd.AddCommand(composeCmd)

	composeCmd.Flags().StringVarP(&composeAgent, "agent", "a", "", "Pin the target agent instead of routing")
	composeCmd.Flags().StringArrayVar(&composeHistory, "history", nil, "Prior conversation turns, oldest first (repeatable)")
	composeCmd.Flags().BoolVar(&composeJSON, "json", false, "Output the composition as JSON")
}

func runCompose(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	app, err := newApp(logger)
	if err != nil {
		return err
	}
	defer app.Close()

	query := reqcontext.Query{
		Text:    strings.Join(args, " "),
		History: composeHistory,
	}
	comp, err := app.orchestrator.Compose(cmd.Context(), query, composeAgent)
	if err != nil {
		return err
	}

	if composeJSON {
		out, err := json.MarshalIndent(map[string]any{
			"agent":         comp.Agent,
			"system_prompt": comp.Prompt,
			"reasoning":     comp.Decision.Reasoning,
			"skills":        resultIDs(comp.Skills),
			"implants":      resultIDs(comp.Implants),
			"from_session":  comp.FromSession,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "# Agent: %s\n", comp.Agent)
	if len(comp.Skills) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "# Skills: %s\n", strings.Join(resultIDs(comp.Skills), ", "))
	}
	if len(comp.Implants) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "# Implants: %s\n", strings.Join(resultIDs(comp.Implants), ", "))
	}
	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprintln(cmd.OutOrStdout(), comp.Prompt)
	return nil
}

func resultIDs(results []retrieval.Result) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	return ids
}
