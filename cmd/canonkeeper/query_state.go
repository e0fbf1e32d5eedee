package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"canonkeeper/internal/config"
)

func queryStateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state <character>",
		Short: "Compute a character's merged state from the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryState(args[0])
		},
	}
	return cmd
}

func runQueryState(character string) error {
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

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	eng := newEngine(cfg, db, log)
	merged, err := eng.charLedger.CurrentState(ctx, character)
	if err != nil {
		return err
	}
	if len(merged.Timeline) == 0 {
		fmt.Fprintf(os.Stdout, "No state recorded for %q.\n", character)
		return nil
	}

	fmt.Fprintf(os.Stdout, "%s:\n", merged.Character)
	keys := make([]string, 0, len(merged.Fields))
	for key := range merged.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(os.Stdout, "  %s: %v\n", key, merged.Fields[key])
	}

	fmt.Fprintln(os.Stdout, "\nTimeline:")
	for _, rec := range merged.Timeline {
		fmt.Fprintf(os.Stdout, "  [ch%d] %s %v\n", rec.Chapter, rec.ChangeType, rec.Changes)
	}
	return nil
}
