package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tnunamak/usagemeter/internal/api"
	"github.com/tnunamak/usagemeter/internal/update"
)

// Set via ldflags.
var version = "dev"

func newVersionCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version, optionally checking for a newer release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "usagemeter "+version)

			check, _ := cmd.Flags().GetBool("check")
			if !check {
				return nil
			}
			checker := &update.Checker{HTTP: api.NewClient(), URL: e.releaseURL}
			rel, err := checker.Check(cmd.Context(), version)
			if err != nil {
				return err
			}
			if rel == nil {
				fmt.Fprintln(out, "up to date")
				return nil
			}
			fmt.Fprintf(out, "update available: %s\n  %s\n", update.StripV(rel.Version), rel.URL)
			return nil
		},
	}
	cmd.Flags().Bool("check", false, "check GitHub for a newer release")
	return cmd
}
