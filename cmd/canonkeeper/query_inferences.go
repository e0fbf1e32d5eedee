package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"canonkeeper/internal/config"
	"canonkeeper/internal/store"
)

func queryInferencesCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "inferences",
		Short: "List diverted low-confidence claims",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryInferences(status)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Status filter (pending, confirmed, rejected)")
	return cmd
}

func runQueryInferences(status string) error {
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

	inferences, err := db.ListInferences(ctx, store.InferenceStatus(status))
	if err != nil {
		return err
	}
	if len(inferences) == 0 {
		fmt.Fprintln(os.Stdout, "No inferences matched.")
		return nil
	}

	for _, inf := range inferences {
		fmt.Fprintf(os.Stdout, "[%s] ch%d %.2f %s %s\n", inf.ID, inf.Chapter, inf.Confidence, inf.Status, inf.Claim)
		if inf.Basis != "" {
			fmt.Fprintf(os.Stdout, "    basis: %s\n", inf.Basis)
		}
	}
	return nil
}
