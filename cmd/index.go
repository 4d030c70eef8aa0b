package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Re-index the skills and implants libraries",
	Long: `Read every annotated document under .cursor/skills and
.cursor/implants and rebuild the vector collections. Document ids are
filenames, so re-indexing overwrites stale entries in place.`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	logger := newLogger()
	app, err := newApp(logger)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := cmd.Context()
	if err := app.skills.Index(ctx); err != nil {
		return fmt.Errorf("index skills: %w", err)
	}
	if err := app.implants.Index(ctx); err != nil {
		return fmt.Errorf("index implants: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "indexed skills_store and implants_store")
	return nil
}
