package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/tnunamak/usagemeter/internal/config"
)

func newProvidersCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List known providers and whether they are enabled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, id := range config.KnownProviders {
				state := "disabled"
				if slices.Contains(e.cfg.Providers, id) {
					state = "enabled"
				}
				if _, err := fmt.Fprintf(out, "%-8s %s  %s\n", id, state, e.cfg.ProviderDataDir(id)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
