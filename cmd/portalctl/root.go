package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/iota-uz/portal/pkg/configuration"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "portalctl",
		Short:         "Portal maintenance tools",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.AddCommand(newMigrateCmd(), newLogsCmd())
	return cmd
}

func loadConfig() (*configuration.Configuration, error) {
	return configuration.Load()
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
