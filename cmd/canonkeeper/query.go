package main

import "github.com/spf13/cobra"

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Inspect the canon from the CLI",
	}
	cmd.AddCommand(queryFactsCmd())
	cmd.AddCommand(queryStateCmd())
	cmd.AddCommand(queryForeshadowsCmd())
	cmd.AddCommand(queryInferencesCmd())
	cmd.AddCommand(queryConceptsCmd())
	return cmd
}
