package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "canonkeeper",
		Short: "Consistency engine for serial fiction canon",
	}
	root.Version = version
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
	root.SetVersionTemplate("{{.Version}}\n")
	root.AddCommand(finalizeCmd())
	root.AddCommand(rollbackCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(queryCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(initCmd())
	root.AddCommand(versionCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
