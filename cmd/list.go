package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available agent profiles",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	logger := newLogger()
	app, err := newApp(logger)
	if err != nil {
		return err
	}
	defer app.Close()

	for _, agent := range app.router.Agents() {
		fmt.Fprintln(cmd.OutOrStdout(), agent)
	}
	return nil
}
