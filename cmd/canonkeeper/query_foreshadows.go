package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"canonkeeper/internal/config"
	"canonkeeper/internal/store"
)

func queryForeshadowsCmd() *cobra.Command {
	var state string
	cmd := &cobra.Command{
		Use:   "foreshadows",
		Short: "List foreshadow entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryForeshadows(state)
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "State filter (pending, confirmed, revealed, archived)")
	return cmd
}

func runQueryForeshadows(state string) error {
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

	foreshadows, err := db.ListForeshadows(ctx, store.ForeshadowState(state))
	if err != nil {
		return err
	}
	if len(foreshadows) == 0 {
		fmt.Fprintln(os.Stdout, "No foreshadows matched.")
		return nil
	}

	for _, f := range foreshadows {
		fmt.Fprintf(os.Stdout, "[%s] %s concept=%s ch%d", f.ID, f.State, f.ConceptID, f.ChapterIntroduced)
		if f.ChapterUpdated != f.ChapterIntroduced {
			fmt.Fprintf(os.Stdout, " (updated ch%d)", f.ChapterUpdated)
		}
		if f.ImpliedFuture != "" {
			fmt.Fprintf(os.Stdout, " %s", f.ImpliedFuture)
		}
		fmt.Fprintln(os.Stdout, "")
	}
	return nil
}
