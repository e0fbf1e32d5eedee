package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"canonkeeper/internal/config"
	"canonkeeper/internal/store"
)

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show finalized chapters and pending work",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	chapters, err := db.ListFinalizedChapters(ctx)
	if err != nil {
		return err
	}
	invalidations, err := db.ListInvalidations(ctx)
	if err != nil {
		return err
	}
	pending, err := db.ListInferences(ctx, store.InferencePending)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Project: %s\n", cfg.Project)
	if len(chapters) == 0 {
		fmt.Fprintln(os.Stdout, "No chapters finalized.")
	} else {
		fmt.Fprintf(os.Stdout, "Finalized chapters (%d):", len(chapters))
		for _, chapter := range chapters {
			fmt.Fprintf(os.Stdout, " %d", chapter)
		}
		fmt.Fprintln(os.Stdout, "")
	}

	if len(invalidations) > 0 {
		fmt.Fprintf(os.Stdout, "\nInvalidated chapters (%d):\n", len(invalidations))
		for _, inv := range invalidations {
			fmt.Fprintf(os.Stdout, "  [%d] %s\n", inv.Chapter, inv.Reason)
		}
	}

	if len(pending) > 0 {
		fmt.Fprintf(os.Stdout, "\nPending inferences (%d):\n", len(pending))
		for _, inf := range pending {
			fmt.Fprintf(os.Stdout, "  [%s] ch%d %.2f %s\n", inf.ID, inf.Chapter, inf.Confidence, inf.Claim)
		}
	}
	return nil
}
