package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/WonderMr/agents/core/retrieval"
)

var (
	searchLibrary string
	searchN       int
	searchKeyword bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search a document library",
	Long: `Search the skills or implants library and print the matches with
their distances. Useful for inspecting what a compose call would load.

Examples:
  agents search "unit testing discipline"
  agents search --library implants "security review"
  agents search --keyword "sqlite"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVarP(&searchLibrary, "library", "l", "skills", "Library to search (skills or implants)")
	searchCmd.Flags().IntVarP(&searchN, "n", "n", 5, "Maximum number of results")
	searchCmd.Flags().BoolVarP(&searchKeyword, "keyword", "k", false, "Use exact keyword matching instead of similarity")
}

func runSearch(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	app, err := newApp(logger)
	if err != nil {
		return err
	}
	defer app.Close()

	query := strings.Join(args, " ")
	ctx := cmd.Context()

	var retriever *retrieval.Retriever
	switch searchLibrary {
	case "skills":
		retriever = app.skills
	case "implants":
		retriever = app.implants
	default:
		return fmt.Errorf("unknown library %q (want skills or implants)", searchLibrary)
	}

	if searchKeyword {
		return runKeywordSearch(cmd, retriever, query)
	}

	results, err := retriever.Retrieve(ctx, query, retrieval.Options{N: searchN})
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no matches within threshold")
		return nil
	}

	for _, result := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "%-40s distance=%.4f  %s\n",
			result.ID, result.Distance, result.Metadata["description"])
	}
	return nil
}

func runKeywordSearch(cmd *cobra.Command, retriever *retrieval.Retriever, query string) error {
	// keyword search runs over the side index, which is fed during
	// vector indexing
	if err := retriever.EnsureIndexed(cmd.Context()); err != nil {
		return err
	}

	keyword := retriever.Keyword()
	if keyword == nil {
		return fmt.Errorf("no keyword index for library %q", searchLibrary)
	}

	hits, err := keyword.Search(query, searchN)
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no keyword matches")
		return nil
	}

	for _, hit := range hits {
		fmt.Fprintf(cmd.OutOrStdout(), "%-40s score=%.4f  %s\n", hit.ID, hit.Score, hit.Description)
	}
	return nil
}
