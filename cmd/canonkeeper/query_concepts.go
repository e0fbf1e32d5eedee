package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"canonkeeper/internal/config"
)

func queryConceptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "concepts",
		Short: "List registered concepts and their aliases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryConcepts()
		},
	}
	return cmd
}

func runQueryConcepts() error {
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

	concepts, err := db.ListConcepts(ctx)
	if err != nil {
		return err
	}
	if len(concepts) == 0 {
		fmt.Fprintln(os.Stdout, "No concepts registered.")
		return nil
	}

	for _, c := range concepts {
		fmt.Fprintf(os.Stdout, "[%s] %s (first seen ch%d)\n", c.ID, c.Name, c.FirstChapter)
		if len(c.Aliases) > 0 {
			fmt.Fprintf(os.Stdout, "    aliases: %s\n", strings.Join(c.Aliases, ", "))
		}
		if c.Description != "" {
			fmt.Fprintf(os.Stdout, "    %s\n", c.Description)
		}
	}
	return nil
}
