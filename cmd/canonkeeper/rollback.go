package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"canonkeeper/internal/config"
)

func rollbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollback <chapter>",
		Short: "Revert a finalized chapter and flag dependents",
		Args:  cobra.ExactArgs(1),
		RunE:  runRollback,
	}
	return cmd
}

func runRollback(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	chapter, err := strconv.Atoi(args[0])
	if err != nil || chapter < 1 {
		return fmt.Errorf("invalid chapter %q", args[0])
	}

	cfg, err := config.LoadProjectConfig(configFile)
	if err != nil {
		return err
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	eng := newEngine(cfg, db, log)
	if err := eng.finalizer.Rollback(ctx, chapter); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Chapter %d rolled back.\n", chapter)

	invalidations, err := db.ListInvalidations(ctx)
	if err != nil {
		return err
	}
	if len(invalidations) > 0 {
		fmt.Fprintln(os.Stdout, "Chapters needing re-finalization:")
		for _, inv := range invalidations {
			fmt.Fprintf(os.Stdout, "  [%d] %s\n", inv.Chapter, inv.Reason)
		}
	}
	return nil
}
