package main

import (
	"github.com/spf13/cobra"

	"github.com/tnunamak/usagemeter/internal/cli"
)

func newHistoryCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [provider]",
		Short: "List recorded probe results, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(cmd, false)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			var id string
			if len(args) == 1 {
				id = args[0]
			}

			a, err := e.app()
			if err != nil {
				return err
			}
			defer a.Close()
			return codeErr(cli.History(cmd.Context(), a, id, limit, format, cmd.OutOrStdout(), cmd.ErrOrStderr()))
		},
	}
	addFormatFlags(cmd, false)
	cmd.Flags().IntP("limit", "n", 20, "maximum number of samples (0 for all)")
	return cmd
}
