package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/WonderMr/agents/core/reqcontext"
)

var (
	routeHistory []string
	routeJSON    bool
)

var routeCmd = &cobra.Command{
	Use:   "route <query>",
	Short: "Resolve the target agent for a query",
	Long: `Route a query through the semantic cache and classifier and print
the resulting decision without composing a prompt.

Examples:
  agents route "refactor the payment service"
  agents route --history "we discussed the billing bug" "fix it"
  agents route --json "review this diff" | jq .target_agent`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRoute,
}

func init() {
	rootCmd.AddCommand(routeCmd)

	routeCmd.Flags().StringArrayVar(&routeHistory, "history", nil, "Prior conversation turns, oldest first (repeatable)")
	routeCmd.Flags().BoolVar(&routeJSON, "json", false, "Output the decision as JSON")
}

func runRoute(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	app, err := newApp(logger)
	if err != nil {
		return err
	}
	defer app.Close()

	query := reqcontext.Query{
		Text:    strings.Join(args, " "),
		History: routeHistory,
	}
	decision := app.orchestrator.Route(cmd.Context(), query)

	if routeJSON {
		out, err := json.MarshalIndent(map[string]any{
			"target_agent": decision.TargetAgent,
			"confidence":   decision.Confidence,
			"reasoning":    decision.Reasoning,
			"cached":       decision.IsCached,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Agent:      %s\n", decision.TargetAgent)
	fmt.Fprintf(cmd.OutOrStdout(), "Confidence: %.2f\n", decision.Confidence)
	fmt.Fprintf(cmd.OutOrStdout(), "Cached:     %v\n", decision.IsCached)
	fmt.Fprintf(cmd.OutOrStdout(), "Reasoning:  %s\n", decision.Reasoning)
	return nil
}
