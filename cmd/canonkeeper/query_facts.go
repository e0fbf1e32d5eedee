package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"canonkeeper/internal/config"
	"canonkeeper/internal/store"
)

func queryFactsCmd() *cobra.Command {
	var factType, status, conceptID, search string
	var chapter int
	cmd := &cobra.Command{
		Use:   "facts",
		Short: "List recorded facts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryFacts(factType, status, conceptID, search, chapter)
		},
	}
	cmd.Flags().StringVar(&factType, "type", "", "Fact type filter")
	cmd.Flags().StringVar(&status, "status", "", "Status filter (valid or superseded)")
	cmd.Flags().StringVar(&conceptID, "concept", "", "Concept id filter")
	cmd.Flags().StringVar(&search, "search", "", "Substring match on the statement")
	cmd.Flags().IntVar(&chapter, "chapter", 0, "Chapter filter")
	return cmd
}

func runQueryFacts(factType, status, conceptID, search string, chapter int) error {
	ctx := context.Background()

	cfg, err := config.LoadProjectConfig(configFile)
	if err != nil {
		return err
	}

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	facts, err := db.ListFacts(ctx, store.FactFilter{
		FactType:  factType,
		Chapter:   chapter,
		Status:    store.FactStatus(status),
		ConceptID: conceptID,
	})
	if err != nil {
		return err
	}

	var shown int
	for _, f := range facts {
		if search != "" && !strings.Contains(strings.ToLower(f.Statement), strings.ToLower(search)) {
			continue
		}
		fmt.Fprintf(os.Stdout, "[%s] ch%d %s (%s/%s) %s\n", f.ID, f.Chapter, f.FactType, f.Confidence, f.Status, f.Statement)
		shown++
	}
	if shown == 0 {
		fmt.Fprintln(os.Stdout, "No facts matched.")
	}
	return nil
}
