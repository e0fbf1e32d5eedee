package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"canonkeeper/internal/config"
	"canonkeeper/internal/extract"
)

func finalizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "finalize <extract.json>",
		Short: "Convert a chapter extract into durable canon",
		Args:  cobra.ExactArgs(1),
		RunE:  runFinalize,
	}
	return cmd
}

func runFinalize(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.LoadProjectConfig(configFile)
	if err != nil {
		return err
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	ex, err := extract.Load(args[0])
	if err != nil {
		return err
	}

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	eng := newEngine(cfg, db, log)
	result, err := eng.finalizer.Finalize(ctx, ex)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Chapter %d finalized.\n", result.Chapter)
	fmt.Fprintf(os.Stdout, "  Effects applied:     %d\n", result.EffectsApplied)
	fmt.Fprintf(os.Stdout, "  Facts created:       %d\n", result.FactsCreated)
	fmt.Fprintf(os.Stdout, "  Facts skipped:       %d\n", result.FactsSkipped)
	fmt.Fprintf(os.Stdout, "  Conflicts dropped:   %d\n", result.ConflictsDropped)
	fmt.Fprintf(os.Stdout, "  Inferences diverted: %d\n", result.InferencesDiverted)
	fmt.Fprintf(os.Stdout, "  Concepts created:    %d\n", result.ConceptsCreated)

	if len(result.Warnings) > 0 {
		fmt.Fprintf(os.Stdout, "\nWarnings (%d):\n", len(result.Warnings))
		for _, warning := range result.Warnings {
			fmt.Fprintf(os.Stdout, "  - %s\n", warning)
		}
	}
	return nil
}
